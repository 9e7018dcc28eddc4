// Package types defines the Database and Table interfaces, the Document and
// Record data model, Config, and the standard errors for the docstore
// document store.
package types
