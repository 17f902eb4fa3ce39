package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every gateway endpoint returns.
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
	// Detail is the backend's error detail, passed through verbatim.
	Detail string `json:"detail,omitempty"`
}

func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code: http.StatusOK,
		Msg:  "success",
		Data: data,
	})
}

// Message is a 200 response with a custom message, e.g. a no-op outcome.
func Message(ctx *gin.Context, msg string, data interface{}) {
	ctx.JSON(http.StatusOK, Response{Code: http.StatusOK, Msg: msg, Data: data})
}

// Status responds with an arbitrary status and a payload, used for partial success (207).
func Status(ctx *gin.Context, httpStatus int, msg string, data interface{}) {
	ctx.JSON(httpStatus, Response{Code: httpStatus, Msg: msg, Data: data})
}

func Error(ctx *gin.Context, httpStatus int, msg string) {
	ctx.AbortWithStatusJSON(httpStatus, Response{
		Code: httpStatus,
		Msg:  msg,
	})
}

// Detail is Error with the backend detail attached.
func Detail(ctx *gin.Context, httpStatus int, msg, detail string) {
	ctx.AbortWithStatusJSON(httpStatus, Response{Code: httpStatus, Msg: msg, Detail: detail})
}
