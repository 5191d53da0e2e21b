package records

import "github.com/JaimeStill/docket/pkg/openapi"

// Schemas returns the OpenAPI component schemas for record responses.
func Schemas() map[string]*openapi.Schema {
	str := &openapi.Schema{Type: "string"}
	return map[string]*openapi.Schema{
		"Record": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":            {Type: "string", Format: "uuid"},
				"fingerprint":   {Type: "string", Pattern: "^[0-9a-f]{64}$"},
				"route_tag":     {Type: "string", Example: "AP"},
				"priority_tier": {Type: "string", Example: "P1"},
				"final_path":    str,
				"original_path": str,
				"status":        {Type: "string", Enum: []any{StatusOK}},
				"confidence":    {Type: "number"},
				"source":        {Type: "string", Enum: []any{SourceLocal, SourceRemote}},
				"client_code":   str,
				"document_type": str,
				"amount":        {Type: "number"},
				"attributes":    {Type: "object", AdditionalProperties: str},
				"recorded_at":   {Type: "string", Format: "date-time"},
			},
			Required: []string{"id", "fingerprint", "route_tag", "priority_tier", "final_path", "status", "recorded_at"},
		},
		"RecordPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Record")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
	}
}

func listOperation() *openapi.Operation {
	params := openapi.PageParams()
	for _, name := range []string{"route_tag", "priority_tier", "status", "source", "client_code", "document_type"} {
		params = append(params, openapi.QueryParam(name, "string", "Exact match filter"))
	}
	return &openapi.Operation{
		Summary:    "List route records",
		Tags:       []string{"records"},
		Parameters: params,
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of records", "RecordPage"),
			400: openapi.ResponseRef("BadRequest"),
		},
	}
}

func findOperation() *openapi.Operation {
	return &openapi.Operation{
		Summary:    "Find the record for a fingerprint",
		Tags:       []string{"records"},
		Parameters: []*openapi.Parameter{openapi.PathParam("fingerprint", "Hex content fingerprint")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Route record", "Record"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	}
}
