package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Station Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	typeParam := map[string]interface{}{
		"name":        "type",
		"in":          "query",
		"description": "Station type (default: AWS)",
		"required":    false,
		"schema":      map[string]interface{}{"type": "string", "enum": []string{"AWS", "ARG"}},
	}
	dateParam := map[string]interface{}{
		"name":        "date",
		"in":          "query",
		"description": "Observation date (YYYY-MM-DD, default: today)",
		"required":    false,
		"schema":      map[string]string{"type": "string", "format": "date"},
	}
	statusParam := map[string]interface{}{
		"name":        "status",
		"in":          "query",
		"description": "Filter by station status",
		"required":    false,
		"schema":      map[string]interface{}{"type": "string", "enum": []string{"WORKING", "NON-WORKING"}},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Station Platform API",
			"description": "Weather station status dashboard backed by PostgreSQL with daily CSV ingestion and fault detail enrichment",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Station Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/summary": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get status summary",
					"description": "Count working and not-working stations for a type and date",
					"parameters":  []map[string]interface{}{typeParam, dateParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"station_type": map[string]string{"type": "string"},
											"date":         map[string]string{"type": "string", "format": "date"},
											"working":      map[string]string{"type": "integer"},
											"not_working":  map[string]string{"type": "integer"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/map": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get map data",
					"description": "List geo-located stations for the dashboard map; stations without coordinates are omitted",
					"parameters":  []map[string]interface{}{typeParam, dateParam, statusParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"station_id": map[string]string{"type": "string"},
												"district":   map[string]string{"type": "string"},
												"block":      map[string]string{"type": "string"},
												"panchayat":  map[string]string{"type": "string"},
												"status":     map[string]string{"type": "string"},
												"lat":        map[string]string{"type": "number"},
												"lon":        map[string]string{"type": "number"},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/vendor-summary": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get vendor summary",
					"description": "Per-vendor working and not-working station counts",
					"parameters":  []map[string]interface{}{typeParam, dateParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"vendor":      map[string]string{"type": "string"},
												"total":       map[string]string{"type": "integer"},
												"working":     map[string]string{"type": "integer"},
												"not_working": map[string]string{"type": "integer"},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/vendor-district-summary": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get vendor district summary",
					"description": "One vendor's per-district station breakdown",
					"parameters": []map[string]interface{}{
						{
							"name":        "vendor",
							"in":          "query",
							"description": "Vendor name",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						typeParam, dateParam, statusParam,
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"district":        map[string]string{"type": "string"},
												"total_installed": map[string]string{"type": "integer"},
												"working":         map[string]string{"type": "integer"},
												"non_working":     map[string]string{"type": "integer"},
												"agency":          map[string]string{"type": "string"},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/block-fault": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get block fault detail",
					"description": "Non-working stations for one vendor and district with per-channel fault detail",
					"parameters": []map[string]interface{}{
						{
							"name":        "vendor",
							"in":          "query",
							"description": "Vendor name",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "district",
							"in":          "query",
							"description": "District name",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						typeParam, dateParam,
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"block":      map[string]string{"type": "string"},
												"station_id": map[string]string{"type": "string"},
												"temp_rh":    map[string]string{"type": "string"},
												"rf":         map[string]string{"type": "string"},
												"ws":         map[string]string{"type": "string"},
												"ap":         map[string]string{"type": "string"},
												"sm":         map[string]string{"type": "string"},
												"sr":         map[string]string{"type": "string"},
												"data_pkt":   map[string]string{"type": "string"},
												"agency":     map[string]string{"type": "string"},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/station-history": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get station history",
					"description": "Day-by-day working flag for one station",
					"parameters": []map[string]interface{}{
						{
							"name":        "station_id",
							"in":          "query",
							"description": "Station identifier",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "vendor",
							"in":          "query",
							"description": "Vendor name",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						typeParam,
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"date":       map[string]string{"type": "string", "format": "date"},
												"is_working": map[string]string{"type": "integer"},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/sync": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Trigger a sync run",
					"description": "Start an on-demand ingestion run in the background",
					"parameters":  []map[string]interface{}{dateParam},
					"responses": map[string]interface{}{
						"202": map[string]interface{}{
							"description": "Run accepted",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status": map[string]string{"type": "string"},
											"date":   map[string]string{"type": "string", "format": "date"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its database are available",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status": map[string]string{"type": "string"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
