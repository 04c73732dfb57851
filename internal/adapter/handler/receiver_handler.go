package handler

import (
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zots0127/filedrop/internal/usecase"
	"github.com/zots0127/filedrop/pkg/middleware"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>filedrop</title></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
    <h2>Upload File</h2>
    <p>POST multipart/form-data with a <code>file</code> field to <code>/upload</code>.
    Received files are served from <code>/downloads/{name}</code>.</p>
    <form action="/upload" method="POST" enctype="multipart/form-data">
        <input type="file" name="file" style="margin: 10px 0;">
        <input type="submit" value="Upload">
    </form>
</body>
</html>
`

// ReceiverHandler serves the upload form, uploads and downloads
type ReceiverHandler struct {
	transfers *usecase.TransferUseCase
	logger    *zap.Logger
	maxMemory int64
}

// NewReceiverHandler creates a new receiver handler. maxMemory bounds how much
// of a multipart body is buffered in memory before spilling to temp files.
func NewReceiverHandler(transfers *usecase.TransferUseCase, logger *zap.Logger, maxMemory int64) *ReceiverHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	return &ReceiverHandler{
		transfers: transfers,
		logger:    logger,
		maxMemory: maxMemory,
	}
}

// RegisterRoutes registers the receiver routes
func (h *ReceiverHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.GetIndex)
	router.POST("/upload", h.handle(h.PostUpload))
	router.GET("/downloads/*name", h.handle(h.GetDownload))
}

// GetIndex returns the informational upload form
func (h *ReceiverHandler) GetIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

// PostUpload stores the "file" part of a multipart upload
func (h *ReceiverHandler) PostUpload(c *gin.Context) error {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return BadRequest("Content-Type must be multipart/form-data", err)
	}

	if err := c.Request.ParseMultipartForm(h.maxMemory); err != nil {
		return BadRequest("Malformed multipart body", err)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return BadRequest("Missing file field", err)
	}
	defer file.Close()

	stored, err := h.transfers.Receive(c.Request.Context(), header.Filename, file)
	if err != nil {
		return Internal(err)
	}

	c.Header("Location", "/downloads/"+url.PathEscape(stored.Name))
	c.String(http.StatusOK, "File uploaded successfully as %s\n", stored.Name)
	return nil
}

// GetDownload streams a stored file as an attachment
func (h *ReceiverHandler) GetDownload(c *gin.Context) error {
	name := strings.TrimPrefix(c.Param("name"), "/")

	reader, file, err := h.transfers.Open(c.Request.Context(), name)
	if err != nil {
		return err
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, file.Size, "application/octet-stream", reader, map[string]string{
		"Content-Disposition": attachmentDisposition(file.Name),
	})
	return nil
}

var quotedStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// attachmentDisposition renders name as an RFC 2616 quoted-string
func attachmentDisposition(name string) string {
	return `attachment; filename="` + quotedStringEscaper.Replace(name) + `"`
}

// handle adapts an error-returning handler. Errors become status codes and
// log entries; they never escape the request.
func (h *ReceiverHandler) handle(fn func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := fn(c)
		if err == nil {
			return
		}

		reqErr := classify(err)
		_ = c.Error(err)

		fields := []zap.Field{
			zap.String("path", c.Request.URL.Path),
			zap.String("kind", reqErr.Kind.String()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		}
		if reqErr.Kind == KindInternal {
			h.logger.Error("request failed", fields...)
		} else {
			h.logger.Warn("request rejected", fields...)
		}

		if c.Writer.Written() {
			// headers already sent, nothing more can be reported
			c.Abort()
			return
		}
		c.String(reqErr.Kind.StatusCode(), reqErr.Message)
	}
}
