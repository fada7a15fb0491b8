package decorate

// Request is a single decoration request. It lives only for the duration
// of the HTTP request and is never persisted.
type Request struct {
	ImageData       []byte
	MimeType        string
	StyleName       string
	RoomDescription string
}

// Result is a successful decoration outcome.
type Result struct {
	Base64Image string `json:"base64Image"`
	MimeType    string `json:"mimeType"`
}
