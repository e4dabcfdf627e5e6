// Package florence exposes the vision tasks over HTTP.
package florence

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"florence-server-go/internal/core/runtime"
	"florence-server-go/internal/domain/composer"
	domainimage "florence-server-go/internal/domain/image"
	"florence-server-go/internal/domain/schema"
	"florence-server-go/internal/domain/task"
	"florence-server-go/internal/platform/config"
	"florence-server-go/internal/platform/errors"
	httptransport "florence-server-go/internal/transport/http"
	"florence-server-go/internal/utils"
)

// Service is the HTTP transport layer for the vision task endpoints.
type Service struct {
	logger   *utils.Logger
	config   *config.Config
	pipeline *domainimage.Pipeline
	infer    runtime.Inferencer
}

// NewService creates the vision HTTP service.
func NewService(
	cfg *config.Config,
	logger *utils.Logger,
	pipeline *domainimage.Pipeline,
	infer runtime.Inferencer,
) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "florence.new", "config is required")
	}
	if pipeline == nil {
		return nil, errors.New(errors.KindConfig, "florence.new", "image pipeline is required")
	}
	if infer == nil {
		return nil, errors.New(errors.KindConfig, "florence.new", "inferencer is required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}

	return &Service{
		logger:   logger,
		config:   cfg,
		pipeline: pipeline,
		infer:    infer,
	}, nil
}

// Register mounts the task endpoints. Status stays on the public group so
// health checks do not need a token.
func (s *Service) Register(ctx context.Context, public, secured *gin.RouterGroup) error {
	public.GET("/florence", s.handleStatus)

	secured.POST("/caption", s.handleCaption)
	secured.POST("/detect", s.handleDetect)
	secured.POST("/segment", s.handleSegment)
	secured.POST("/ocr", s.handleOCR)

	s.logger.InfoTag("HTTP", "florence routes registered")
	return nil
}

func (s *Service) handleStatus(c *gin.Context) {
	tasks := make([]string, 0, len(task.All()))
	for _, t := range task.All() {
		tasks = append(tasks, string(t))
	}

	httptransport.RespondSuccess(c, http.StatusOK, StatusData{
		Model:      s.config.Runtime.Model,
		RuntimeURL: s.config.Runtime.BaseURL,
		Tasks:      tasks,
	}, "florence service is running")
}

func (s *Service) handleCaption(c *gin.Context) {
	var req CaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	t, err := task.CaptionVerbosity(req.Verbosity).Task()
	if err != nil {
		s.respondTaskError(c, err)
		return
	}

	s.run(c, &schema.TaskRequest{Task: t, Image: req.Image})
}

func (s *Service) handleDetect(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	t, err := task.DetectionMode(req.Mode).Task()
	if err != nil {
		s.respondTaskError(c, err)
		return
	}

	s.run(c, &schema.TaskRequest{Task: t, Image: req.Image, Prompt: req.Prompt, Region: req.Region})
}

func (s *Service) handleSegment(c *gin.Context) {
	var req SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	t, err := task.SegmentationMode(req.Mode).Task()
	if err != nil {
		s.respondTaskError(c, err)
		return
	}

	s.run(c, &schema.TaskRequest{Task: t, Image: req.Image, Prompt: req.Prompt, Region: req.Region})
}

func (s *Service) handleOCR(c *gin.Context) {
	var req OCRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	t, err := task.OCRMode(req.Mode).Task()
	if err != nil {
		s.respondTaskError(c, err)
		return
	}

	s.run(c, &schema.TaskRequest{Task: t, Image: req.Image})
}

// run executes one task request end to end: validate, resolve the image,
// compose the prompt, call the runtime, parse the raw output.
func (s *Service) run(c *gin.Context, req *schema.TaskRequest) {
	if err := req.Validate(); err != nil {
		s.respondTaskError(c, err)
		return
	}

	ctx := c.Request.Context()

	img, err := s.pipeline.Resolve(ctx, req.Image)
	if err != nil {
		s.respondTaskError(c, err)
		return
	}

	prompt, err := composer.Compose(req)
	if err != nil {
		s.respondTaskError(c, err)
		return
	}

	raw, err := s.infer.Infer(ctx, img.Base64, prompt)
	if err != nil {
		s.respondTaskError(c, err)
		return
	}

	result, err := composer.Parse(req.Task, raw)
	if err != nil {
		s.respondTaskError(c, err)
		return
	}

	s.logger.DebugTag("FLORENCE", "task completed", map[string]interface{}{
		"task":   string(req.Task),
		"prompt": prompt,
	})
	httptransport.RespondSuccess(c, http.StatusOK, result, "")
}

func (s *Service) respondTaskError(c *gin.Context, err error) {
	if httptransport.StatusFromError(err) >= http.StatusInternalServerError {
		s.logger.ErrorTag("FLORENCE", "task failed: %v", err)
	} else {
		s.logger.WarnTag("FLORENCE", "task rejected: %v", err)
	}
	httptransport.RespondWithError(c, err)
}
