package errors

import (
	"errors"
	"fmt"

	"gridflow/pkg/errors/ecode"
)

// 带业务错误码的error，供pkg/response在出口处统一解码

type codeError struct {
	code    int
	message string
	cause   error
}

func (e *codeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *codeError) Unwrap() error { return e.cause }

// WithCode 创建一个带错误码的error
func WithCode(code int, format string, args ...interface{}) error {
	return &codeError{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap 包装一个已有error并附加错误码和提示信息
func Wrap(err error, code int, message string) error {
	return &codeError{code: code, message: message, cause: err}
}

// Wrapf 同Wrap，支持格式化
func Wrapf(err error, code int, format string, args ...interface{}) error {
	return &codeError{code: code, message: fmt.Sprintf(format, args...), cause: err}
}

// DecodeErr 解码error，返回错误码和提示信息。nil视为成功
func DecodeErr(err error) (int, string) {
	if err == nil {
		return ecode.Success, "ok"
	}
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code, ce.message
	}
	return ecode.Unknown, err.Error()
}

// Code 提取错误码，非codeError返回Unknown
func Code(err error) int {
	code, _ := DecodeErr(err)
	return code
}

// IsCode 判断错误链上是否带有指定错误码
func IsCode(err error, code int) bool {
	var ce *codeError
	for e := err; e != nil; {
		if errors.As(e, &ce) {
			if ce.code == code {
				return true
			}
			e = ce.cause
			continue
		}
		break
	}
	return false
}
