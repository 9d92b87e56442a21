package api

import "github.com/gin-gonic/gin"

func AbortWithError(ctx *gin.Context, status int, code string, err error) {
	AbortWithAPIError(ctx, status, err, &APIError{
		Code:    code,
		Message: err.Error(),
	})
}

// AbortWithAPIError records err on the context and responds with body
func AbortWithAPIError(ctx *gin.Context, status int, err error, body *APIError) {
	ctx.Abort()
	ctx.Error(err)
	ctx.PureJSON(status, body)
}
