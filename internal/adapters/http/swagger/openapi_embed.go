package swagger

import _ "embed"

// OpenAPI contains the embedded OpenAPI YAML document for the attendance API.
//
//go:embed openapi.yaml
var OpenAPI []byte
