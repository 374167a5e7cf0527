package server

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiYAML []byte

var (
	openapiOnce sync.Once
	openapiJSON []byte
	openapiErr  error
)

// OpenAPIJSON returns the embedded API document converted to JSON.
func OpenAPIJSON() ([]byte, error) {
	openapiOnce.Do(func() {
		var doc map[string]any
		if err := yaml.Unmarshal(openapiYAML, &doc); err != nil {
			openapiErr = fmt.Errorf("decode openapi yaml: %w", err)
			return
		}
		openapiJSON, openapiErr = json.MarshalIndent(doc, "", "  ")
		if openapiErr != nil {
			openapiErr = fmt.Errorf("encode openapi json: %w", openapiErr)
		}
	})
	return openapiJSON, openapiErr
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := OpenAPIJSON()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "openapi_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
