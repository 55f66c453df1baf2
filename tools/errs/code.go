package errs

// 业务错误码：1xxx 连接/鉴权，2xxx 房间/成员，3xxx 消息，9xxx 通用
const (
	CodeUnauthenticated = 1001 // 凭证无效或已过期
	CodeTokenExpired    = 1002
	CodeNotJoined       = 2001 // 未加入该房间
	CodeRoomNotFound    = 2002
	CodeNotAuthorized   = 3001 // 不是会话成员，不允许发消息
	CodePersistFailed   = 3002 // 落库失败，未广播
	CodeArgs            = 9001
	CodeInternal        = 9500
)

var (
	ErrUnauthenticated = NewCodeError(CodeUnauthenticated, "Unauthenticated")
	ErrTokenExpired    = NewCodeError(CodeTokenExpired, "TokenExpired")
	ErrNotJoined       = NewCodeError(CodeNotJoined, "NotJoined")
	ErrRoomNotFound    = NewCodeError(CodeRoomNotFound, "RoomNotFound")
	ErrNotAuthorized   = NewCodeError(CodeNotAuthorized, "NotAuthorized")
	ErrPersistFailed   = NewCodeError(CodePersistFailed, "PersistFailed")
	ErrArgs            = NewCodeError(CodeArgs, "InvalidArgs")
	ErrInternal        = NewCodeError(CodeInternal, "InternalError")
)
