package dialect

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultSchema is the only schema the server exposes.
const DefaultSchema = "public"

// ErrSchemasUnsupported is returned for CREATE SCHEMA / DROP SCHEMA.
var ErrSchemasUnsupported = errors.New("schemas are not supported, there is only 'public'")

// publicSchemaPattern matches public., 'public'. and "public". qualifiers.
var publicSchemaPattern = regexp.MustCompile(`(?i)(?:'public'|"public"|\bpublic)\.`)

// RemovePublicSchema strips public schema qualifiers from SQL text, since the
// server rejects schema-qualified names.
//
//	RemovePublicSchema("SELECT * FROM public.trades") → "SELECT * FROM trades"
func RemovePublicSchema(sql string) string {
	if sql == "" || !strings.Contains(strings.ToLower(sql), DefaultSchema) {
		return sql
	}
	return publicSchemaPattern.ReplaceAllString(sql, "")
}
