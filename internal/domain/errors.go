package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidRange          ErrorCode = "INVALID_RANGE"
	CodeInvalidRequest        ErrorCode = "INVALID_REQUEST"
	CodeSlotsUnavailable      ErrorCode = "SLOTS_UNAVAILABLE"
	CodeHoldLimitExceeded     ErrorCode = "HOLD_LIMIT_EXCEEDED"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeNotActive             ErrorCode = "NOT_ACTIVE"
	CodeConfigNotFound        ErrorCode = "CONFIG_NOT_FOUND"
	CodeOutsideShift          ErrorCode = "OUTSIDE_SHIFT"
	CodeBankHoliday           ErrorCode = "BANK_HOLIDAY"
	CodeBufferWindowViolation ErrorCode = "BUFFER_WINDOW_VIOLATION"
)

// Error 是可以直接展示给调用方的业务错误，基础设施错误不会使用这个类型
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is 只比较错误码，使得 errors.Is(err, domain.ErrSlotsUnavailable) 对带有不同消息的同类错误也成立
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidRange          = &Error{Code: CodeInvalidRange, Message: "时间片范围无效"}
	ErrInvalidRequest        = &Error{Code: CodeInvalidRequest, Message: "请求参数无效"}
	ErrSlotsUnavailable      = &Error{Code: CodeSlotsUnavailable, Message: "所选时间片已被占用"}
	ErrHoldLimitExceeded     = &Error{Code: CodeHoldLimitExceeded, Message: "该服务单的预占数量已达上限"}
	ErrNotFound              = &Error{Code: CodeNotFound, Message: "预约不存在"}
	ErrNotActive             = &Error{Code: CodeNotActive, Message: "预约已取消或已过期"}
	ErrConfigNotFound        = &Error{Code: CodeConfigNotFound, Message: "日历配置不存在"}
	ErrOutsideShift          = &Error{Code: CodeOutsideShift, Message: "所选时间不在施工队班次内"}
	ErrBankHoliday           = &Error{Code: CodeBankHoliday, Message: "所选日期不是工作日"}
	ErrBufferWindowViolation = &Error{Code: CodeBufferWindowViolation, Message: "所选日期不在允许的预约窗口内"}
)

// ErrDuplicateHoldReference 由存储层在 hold_reference 唯一约束冲突时返回
var ErrDuplicateHoldReference = errors.New("duplicate hold reference")

// CodeOf 返回错误链上第一个业务错误的错误码，非业务错误返回空字符串
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
