//go:build !sonic

package songsdk

import "github.com/goccy/go-json"

// for imroc/req and the resume file
var jsonMarshal = json.Marshal
var jsonUnmarshal = json.Unmarshal
