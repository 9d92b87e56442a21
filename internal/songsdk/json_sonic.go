//go:build sonic

package songsdk

import "github.com/bytedance/sonic"

// for imroc/req and the resume file
var jsonMarshal = sonic.Marshal
var jsonUnmarshal = sonic.Unmarshal
