// Package docs turns an uploaded PDF into its pair of query tools.
//
// Pipeline:
//
//	PDF -> pages -> token chunks -> chromem collection -> (vector tool, summary tool)
package docs
