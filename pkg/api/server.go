// Package api provides the REST API server for midiroll
package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Southclaws/fault/ftag"
	"github.com/gin-gonic/gin"
	"github.com/james-see/midiroll/pkg/dataset"
	"github.com/james-see/midiroll/pkg/pianoroll"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title MIDIRoll API
// @version 1.0
// @description API for converting between MIDI files and quantized piano-rolls
// @host localhost:8080
// @BasePath /api/v1

// NewRouter builds the API routes. defaults is used when a request does not
// set div or pedal.
func NewRouter(defaults pianoroll.Options) *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.POST("/convert/midi2roll", converter(defaults, pianoroll.FormatMIDI, pianoroll.FormatRoll))
		v1.POST("/convert/midi2tokens", converter(defaults, pianoroll.FormatMIDI, pianoroll.FormatTokens))
		v1.POST("/convert/roll2midi", converter(defaults, pianoroll.FormatRoll, pianoroll.FormatMIDI))
		v1.POST("/convert/roll2tokens", converter(defaults, pianoroll.FormatRoll, pianoroll.FormatTokens))
		v1.POST("/convert/tokens2midi", converter(defaults, pianoroll.FormatTokens, pianoroll.FormatMIDI))
		v1.POST("/convert/tokens2roll", converter(defaults, pianoroll.FormatTokens, pianoroll.FormatRoll))
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(port int, defaults pianoroll.Options) error {
	return NewRouter(defaults).Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "midiroll",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{string(pianoroll.FormatMIDI), string(pianoroll.FormatRoll), string(pianoroll.FormatTokens)},
		"conversions": pianoroll.GetSupportedConversions(),
	})
}

// converter godoc
// @Summary Convert an uploaded file
// @Description Upload a file in the source format and receive it in the target format
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "File to convert"
// @Param div query int false "Steps per beat for MIDI input (default: 4)"
// @Param pedal query bool false "Extend notes held by the sustain pedal (default: true)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/convert/{conversion} [post]
func converter(defaults pianoroll.Options, from, to pianoroll.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		handleConversion(c, defaults, from, to)
	}
}

func handleConversion(c *gin.Context, defaults pianoroll.Options, from, to pianoroll.Format) {
	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	// Read file content
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	opts, err := requestOptions(c, defaults)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roll, err := pianoroll.Read(data, from, opts)
	if err != nil {
		respondError(c, dataset.Tag(err, fmt.Sprintf("failed to read %s", from)))
		return
	}

	result, err := roll.Encode(to)
	if err != nil {
		respondError(c, dataset.Tag(err, fmt.Sprintf("failed to write %s", to)))
		return
	}

	// Generate output filename
	base := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	if base == "" {
		base = "converted"
	}
	outputName := base + to.Extension()

	// Set content type and headers
	var contentType string
	switch to {
	case pianoroll.FormatMIDI:
		contentType = "audio/midi"
	case pianoroll.FormatRoll:
		contentType = "application/json"
	default:
		contentType = "text/plain; charset=utf-8"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Data(http.StatusOK, contentType, result)
}

func requestOptions(c *gin.Context, defaults pianoroll.Options) (pianoroll.Options, error) {
	opts := defaults
	if v := c.Query("div"); v != "" {
		div, err := strconv.Atoi(v)
		if err != nil || div <= 0 {
			return opts, fmt.Errorf("invalid div %q", v)
		}
		opts.Div = div
	}
	if v := c.Query("pedal"); v != "" {
		pedal, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid pedal %q", v)
		}
		opts.Pedal = pedal
	}
	return opts, nil
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch ftag.Get(err) {
	case dataset.KindParse, dataset.KindInvalidInput:
		status = http.StatusBadRequest
	case dataset.KindEmptyRoll:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": string(ftag.Get(err))})
}
