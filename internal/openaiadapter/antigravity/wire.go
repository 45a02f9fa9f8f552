package antigravity

// Upstream roles. The upstream has no system or tool role: system text travels in
// Request.SystemInstruction and tool results are user turns.
const (
	roleUser  = "user"
	roleModel = "model"
)

// Envelope is the Gemini-CLI style request body sent to v1internal.
type Envelope struct {
	Project   string  `json:"project"`
	RequestID string  `json:"requestId"`
	Model     string  `json:"model"`
	UserAgent string  `json:"userAgent"`
	Request   Request `json:"request"`
}

// Request is the generation request carried by an Envelope.
type Request struct {
	Contents          []Content        `json:"contents"`
	Tools             []Tool           `json:"tools,omitempty"`
	ToolConfig        ToolConfig       `json:"toolConfig"`
	GenerationConfig  GenerationConfig `json:"generationConfig"`
	SessionID         string           `json:"sessionId"`
	SystemInstruction *Content         `json:"systemInstruction,omitempty"`
}

// Content is one upstream turn.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is exactly one of text, inline data, function call or function response.
// Text is a pointer so an empty text part is still sent.
type Part struct {
	Text             *string           `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	InlineData       *InlineData       `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
	ThoughtSignature string            `json:"thoughtSignature,omitempty"`
}

// InlineData is a base64 encoded blob.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall is a tool invocation by the model.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResponse is the result of a tool invocation.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

func textPart(s string) Part {
	return Part{Text: &s}
}
