package server

import (
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/campus-mcp/internal/classifier"
	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/ZanzyTHEbar/campus-mcp/internal/security"
	"github.com/gin-gonic/gin"
)

// PredictResponse is the result of a single upload
type PredictResponse struct {
	Success              bool    `json:"success"`
	Prediction           string  `json:"prediction"`
	Confidence           float64 `json:"confidence"`
	ConfidencePercentage float64 `json:"confidence_percentage"`
	Filename             string  `json:"filename"`
}

// BatchFileResult is one entry of a batch response
type BatchFileResult struct {
	Filename             string   `json:"filename"`
	Success              bool     `json:"success"`
	Prediction           string   `json:"prediction,omitempty"`
	Confidence           *float64 `json:"confidence,omitempty"`
	ConfidencePercentage *float64 `json:"confidence_percentage,omitempty"`
	Error                string   `json:"error,omitempty"`
}

// BatchResponse lists per-file outcomes in upload order
type BatchResponse struct {
	Success    bool              `json:"success"`
	TotalFiles int               `json:"total_files"`
	Results    []BatchFileResult `json:"results"`
}

// DLPredictResponse answers a raw-body prediction
type DLPredictResponse struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	ModelType  string  `json:"model_type"`
	Timestamp  string  `json:"timestamp"`
}

func round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}

// loadedModel fails with a 503 before any upload is read
func (s *Server) loadedModel(name string) (*classifier.Model, error) {
	if s.classifiers == nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrModelUnavailable, classifier.ErrNotConfigured)
	}
	m, err := s.classifiers.Model(name)
	if err != nil {
		return nil, err
	}
	if !m.Loaded() {
		return nil, fmt.Errorf("%w: %s model is not loaded", apperrors.ErrModelUnavailable, name)
	}
	return m, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if err := security.ValidateImageUpload(fh); err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", apperrors.ErrInvalidInput, fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", apperrors.ErrInvalidInput, fh.Filename, err)
	}
	return data, nil
}

// handlePredict godoc
// @Summary      Classify one image
// @Description  /predict uses the pneumonia model, /fruits/predict the fruits model
// @Tags         classification
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "image"
// @Success      200   {object}  PredictResponse
// @Failure      400   {object}  apperrors.ErrorResponse
// @Failure      503   {object}  apperrors.ErrorResponse
// @Router       /predict [post]
// @Router       /fruits/predict [post]
func (s *Server) handlePredict(model string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := s.loadedModel(model); err != nil {
			apperrors.Abort(c, err)
			return
		}

		fh, err := c.FormFile("file")
		if err != nil {
			apperrors.Abort(c, fmt.Errorf("%w: no file uploaded", apperrors.ErrInvalidInput))
			return
		}
		data, err := readUpload(fh)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}

		pred, err := s.classifiers.ClassifyBytes(c.Request.Context(), model, data)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, PredictResponse{
			Success:              true,
			Prediction:           pred.Label,
			Confidence:           round(pred.Confidence, 4),
			ConfidencePercentage: round(pred.Confidence*100, 2),
			Filename:             fh.Filename,
		})
	}
}

// handlePredictBatch godoc
// @Summary      Classify several images
// @Tags         classification
// @Accept       multipart/form-data
// @Produce      json
// @Param        files  formData  file  true  "images"
// @Success      200    {object}  BatchResponse
// @Failure      400    {object}  apperrors.ErrorResponse
// @Failure      503    {object}  apperrors.ErrorResponse
// @Router       /predict/batch [post]
func (s *Server) handlePredictBatch(model string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := s.loadedModel(model); err != nil {
			apperrors.Abort(c, err)
			return
		}

		form, err := c.MultipartForm()
		if err != nil || len(form.File["files"]) == 0 {
			apperrors.Abort(c, fmt.Errorf("%w: no files uploaded", apperrors.ErrInvalidInput))
			return
		}

		uploads := form.File["files"]
		items := make([]classifier.BatchItem, len(uploads))
		for i, fh := range uploads {
			data, err := readUpload(fh)
			items[i] = classifier.BatchItem{Filename: fh.Filename, Data: data, Err: err}
		}

		results := s.classifiers.ClassifyBatch(c.Request.Context(), model, items, s.cfg.ClassifyConcurrency)

		resp := BatchResponse{
			Success:    true,
			TotalFiles: len(results),
			Results:    make([]BatchFileResult, len(results)),
		}
		for i, r := range results {
			if r.Err != nil {
				resp.Results[i] = BatchFileResult{
					Filename: r.Filename,
					Error:    apperrors.ToAppError(r.Err).Msg,
				}
				continue
			}
			confidence := round(r.Prediction.Confidence, 4)
			percentage := round(r.Prediction.Confidence*100, 2)
			resp.Results[i] = BatchFileResult{
				Filename:             r.Filename,
				Success:              true,
				Prediction:           r.Prediction.Label,
				Confidence:           &confidence,
				ConfidencePercentage: &percentage,
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}

// handleDLPredict godoc
// @Summary      Classify a raw image body
// @Tags         classification
// @Accept       octet-stream
// @Produce      json
// @Param        model_type  query     string  false  "pneumonia or fruits"  default(pneumonia)
// @Success      200         {object}  DLPredictResponse
// @Failure      400         {object}  apperrors.ErrorResponse
// @Failure      503         {object}  apperrors.ErrorResponse
// @Router       /dl/predict [post]
func (s *Server) handleDLPredict(c *gin.Context) {
	model := strings.ToLower(c.DefaultQuery("model_type", pneumoniaModel))
	if model != pneumoniaModel && model != fruitsModel {
		apperrors.Abort(c, fmt.Errorf("%w: model_type must be %s or %s", apperrors.ErrInvalidInput, pneumoniaModel, fruitsModel))
		return
	}
	if _, err := s.loadedModel(model); err != nil {
		apperrors.Abort(c, err)
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		apperrors.Abort(c, fmt.Errorf("%w: cannot read request body: %v", apperrors.ErrInvalidInput, err))
		return
	}

	pred, err := s.classifiers.ClassifyBytes(c.Request.Context(), model, data)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, DLPredictResponse{
		Prediction: pred.Label,
		Confidence: round(pred.Confidence, 4),
		ModelType:  model,
		Timestamp:  s.timestamp(),
	})
}

// handleModelStatus godoc
// @Summary      Model status
// @Tags         classification
// @Produce      json
// @Success      200  {object}  classifier.ModelStatus
// @Failure      503  {object}  apperrors.ErrorResponse
// @Router       /fruits/status [get]
func (s *Server) handleModelStatus(model string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.classifiers == nil {
			apperrors.Abort(c, fmt.Errorf("%w: %v", apperrors.ErrModelUnavailable, classifier.ErrNotConfigured))
			return
		}
		m, err := s.classifiers.Model(model)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, m.Status())
	}
}
