package topics

// Renderer formats topic content for terminal display. The format
// argument is the topic file's extension, ".md" or ".txt".
type Renderer interface {
	Render(content string, format string) string
}

// PlainRenderer returns content unchanged. It is the default.
type PlainRenderer struct{}

// Render returns the content as-is.
func (r *PlainRenderer) Render(content string, format string) string {
	return content
}
