package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alkime/docvoice/internal/extract"
	"github.com/alkime/docvoice/internal/operation"
	"github.com/gin-gonic/gin"
)

const (
	detailNoFile      = "No file provided"
	detailUnsupported = "Unsupported file type"
	detailTooLarge    = "File too large"
	detailNoText      = "Could not extract readable text from this document. " +
		"If it is a scanned or image-only PDF, please run OCR first."
)

type upload struct {
	name string
	blob []byte
}

// abort ends the request with a {"detail": ...} body.
func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// readUpload validates and reads the multipart "file" field. It writes the
// error response itself and reports whether the handler should continue.
func (s *Server) readUpload(c *gin.Context) (*upload, bool) {
	if s.config.MaxUploadBytes > 0 {
		if c.Request.ContentLength > s.config.MaxUploadBytes {
			abort(c, http.StatusRequestEntityTooLarge, detailTooLarge)
			return nil, false
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, detailTooLarge)
			return nil, false
		}
		abort(c, http.StatusBadRequest, detailNoFile)
		return nil, false
	}

	if fh.Filename == "" {
		abort(c, http.StatusBadRequest, detailNoFile)
		return nil, false
	}
	if !operation.Accepts(fh.Filename) {
		abort(c, http.StatusBadRequest, detailUnsupported)
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		s.logger.Error("Failed to open upload", "error", err, "file", fh.Filename)
		abort(c, http.StatusBadRequest, detailNoFile)
		return nil, false
	}
	defer f.Close()

	blob, err := io.ReadAll(f)
	if err != nil {
		s.logger.Error("Failed to read upload", "error", err, "file", fh.Filename)
		abort(c, http.StatusBadRequest, detailNoFile)
		return nil, false
	}

	s.logger.Debug("Upload received", "file", fh.Filename, "bytes", len(blob))

	return &upload{name: fh.Filename, blob: blob}, true
}

// extractText runs extraction and maps its failures to responses.
func (s *Server) extractText(c *gin.Context, up *upload) (string, bool) {
	text, err := s.deps.Extract(c.Request.Context(), up.name, up.blob)
	switch {
	case err == nil:
		return text, true
	case errors.Is(err, extract.ErrUnsupported), errors.Is(err, extract.ErrCorrupt):
		s.logger.Warn("Extraction rejected document", "error", err, "file", up.name)
		abort(c, http.StatusUnsupportedMediaType, err.Error())
	default:
		s.logger.Error("Extraction failed", "error", err, "file", up.name)
		abort(c, http.StatusInternalServerError, fmt.Sprintf("Extraction failed: %v", err))
	}

	return "", false
}

// readableText is extractText plus the empty-text guard.
func (s *Server) readableText(c *gin.Context, up *upload) (string, bool) {
	text, ok := s.extractText(c, up)
	if !ok {
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		abort(c, http.StatusUnprocessableEntity, detailNoText)
		return "", false
	}

	return text, true
}

func (s *Server) summary(c *gin.Context, text string) (string, bool) {
	summary, err := s.deps.Summarizer.Summarize(c.Request.Context(), text)
	if err != nil {
		s.logger.Error("Summary failed", "error", err)
		abort(c, http.StatusBadGateway, "Summary failed: the language model could not be reached.")
		return "", false
	}

	return summary, true
}

// sendAudio synthesizes text, stores the audio and streams it back as
// filename.
func (s *Server) sendAudio(c *gin.Context, text, filename string) {
	audio, err := s.deps.Synthesizer.Synthesize(c.Request.Context(), text)
	if err != nil {
		s.logger.Error("Speech synthesis failed", "error", err)
		abort(c, http.StatusBadGateway, "TTS failed: speech could not be generated.")
		return
	}

	stored, err := s.deps.Store.Save(c.Request.Context(), audio)
	if err != nil {
		s.logger.Error("Failed to store audio", "error", err)
		abort(c, http.StatusInternalServerError, "Failed to store audio")
		return
	}
	defer stored.Reader.Close()

	s.logger.Info("Audio ready", "file", filename, "bytes", stored.Size, "location", stored.Location)

	c.DataFromReader(http.StatusOK, stored.Size, "audio/mpeg", stored.Reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	up, ok := s.readUpload(c)
	if !ok {
		return
	}

	text, ok := s.extractText(c, up)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (s *Server) handleToAudio(c *gin.Context) {
	up, ok := s.readUpload(c)
	if !ok {
		return
	}

	text, ok := s.readableText(c, up)
	if !ok {
		return
	}

	s.sendAudio(c, text, operation.ToSpeech.DefaultFilename())
}

func (s *Server) handleSummarise(c *gin.Context) {
	up, ok := s.readUpload(c)
	if !ok {
		return
	}

	text, ok := s.readableText(c, up)
	if !ok {
		return
	}

	summary, ok := s.summary(c, text)
	if !ok {
		return
	}

	c.String(http.StatusOK, summary)
}

func (s *Server) handleSummariseAudio(c *gin.Context) {
	up, ok := s.readUpload(c)
	if !ok {
		return
	}

	text, ok := s.readableText(c, up)
	if !ok {
		return
	}

	summary, ok := s.summary(c, text)
	if !ok {
		return
	}

	s.sendAudio(c, summary, operation.SummarizeToSpeech.DefaultFilename())
}
