// Package api exposes the prediction service over HTTP. Handlers stay thin:
// decode, delegate to the service facade, encode.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/healthstack/diagnosis-engine/internal/matcher"
	"github.com/healthstack/diagnosis-engine/internal/services"
)

// SymptomList accepts either a JSON array of strings or a single
// comma-separated string, so both {"symptoms": ["fever","chills"]} and
// {"symptoms": "fever, chills"} are valid.
type SymptomList []string

// UnmarshalJSON implements the dual-form decoding.
func (s *SymptomList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = matcher.SplitInput(text)
		return nil
	}
	return fmt.Errorf("symptoms must be a string or an array of strings")
}

type predictRequest struct {
	Symptoms SymptomList `json:"symptoms"`
	TopN     int         `json:"top_n"`
}

type matchRequest struct {
	Symptoms SymptomList `json:"symptoms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.svc.Predict(c.Request.Context(), req.Symptoms, req.TopN)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "prediction failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(req.Symptoms) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "symptoms are required"})
		return
	}
	c.JSON(http.StatusOK, s.svc.Match(req.Symptoms))
}

func (s *Server) handleSymptoms(c *gin.Context) {
	list := s.svc.Symptoms()
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filtered := list[:0:0]
		for _, sw := range list {
			if strings.Contains(sw.Symptom, strings.ToLower(q)) {
				filtered = append(filtered, sw)
			}
		}
		list = filtered
	}
	c.JSON(http.StatusOK, gin.H{"symptoms": list, "count": len(list)})
}

func (s *Server) handleModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.ModelInfo())
}

func (s *Server) handleHealth(c *gin.Context) {
	info := s.svc.ModelInfo()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"algorithm":    info.Algorithm,
		"num_symptoms": info.NumSymptoms,
		"num_diseases": info.NumDiseases,
	})
}
