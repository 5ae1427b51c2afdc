package response

// AppError 处理器层错误：业务码 + 文案 key + 原始错误
type AppError struct {
	Code       int
	MessageKey string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.MessageKey
	}
	return e.MessageKey + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, messageKey string, err error) *AppError {
	return &AppError{
		Code:       code,
		MessageKey: messageKey,
		Err:        err,
	}
}
