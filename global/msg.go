package global

// Msg 是 REST 接口统一响应壳
type Msg struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func Success(data any) *Msg {
	return &Msg{
		Code: 200,
		Msg:  "",
		Data: data,
	}
}

func Fail(code int, msg string) *Msg {
	return &Msg{Code: code, Msg: msg}
}
