package constants

const (
	CntTypeHeaderJSON = "application/json"
	CntTypeHeaderText = "text/plain; charset=utf-8"
	AuthHeader        = "Authorization"

	PackagesCollection = "packages"
	ReviewsCollection  = "reviews"
	OrdersCollection   = "orders"

	// Field of an order document holding the owner's email
	OrderOwnerField = "email"

	MsgUnauthorized  = "Unauthorized access"
	MsgForbidden     = "Forbidden Access"
	MsgInternalError = "Internal Server Error"
	MsgNotFoundPage  = "Dream Weaver page not found"
	MsgRunning       = "Dream Weaver is running"
)
