package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// writeOK 成功响应
func writeOK(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, APIResponse{
		Status: 0,
		Msg:    "操作成功",
		Data:   data,
	})
}

// writeError 失败响应
func writeError(w http.ResponseWriter, r *http.Request, httpStatus int, msg string) {
	w.WriteHeader(httpStatus)
	render.JSON(w, r, APIResponse{
		Status: httpStatus,
		Msg:    msg,
	})
}
