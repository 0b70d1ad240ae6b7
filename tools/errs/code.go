package errs

const (
	ServerInternalError = 500
	ArgsError           = 1001
	RecordNotFoundError = 1004
	NoPermissionError   = 1002

	TokenMissingError = 1501
	TokenInvalidError = 1502
)

var (
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrNoPermission   = NewCodeError(NoPermissionError, "NoPermissionError")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "RecordNotFoundError")

	ErrTokenMissing = NewCodeError(TokenMissingError, "TokenMissing")
	ErrTokenInvalid = NewCodeError(TokenInvalidError, "TokenInvalid")
)
