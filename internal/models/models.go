package models

// Document is a schemaless record of a collection
type Document map[string]any

// Key of the store assigned document id
const DocumentIDKey = "_id"

// Filter matches documents whose fields are equal to the given string values
type Filter map[string]string

// Page selects a window of a collection, Limit 0 means no limit
type Page struct {
	Skip  int64
	Limit int64
}

type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

type PackagesPage struct {
	Packages []Document `json:"packages"`
	Count    int64      `json:"count"`
}

type PackagesNotFound struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type Message struct {
	Message string `json:"message"`
}

// Identity is the payload carried by a verified token
type Identity map[string]any

// Email returns the email claim of identity if it is a string
func (i Identity) Email() (string, bool) {
	v, ok := i["email"]
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
