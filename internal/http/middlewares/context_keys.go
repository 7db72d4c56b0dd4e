package middlewares

// gin context keys; plain strings so c.Get works without importing this package
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
	CtxEmail     = "auth.email"
)
