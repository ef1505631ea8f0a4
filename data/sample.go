// Package data carries the sample knowledge base installed by setup init.
package data

import _ "embed"

// SampleKnowledgeBase is a small respiratory and gastrointestinal knowledge
// base in JSON.
//
//go:embed knowledge_base.json
var SampleKnowledgeBase []byte
