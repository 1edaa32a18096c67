package model

// ReferenceKind is the syntax form that produced a reference.
type ReferenceKind string

const (
	// RefImport is a static import declaration.
	RefImport ReferenceKind = "import"
	// RefReExport is `export { x } from "..."`.
	RefReExport ReferenceKind = "re-export"
	// RefReExportAll is `export * from "..."` or `export * as ns from "..."`.
	RefReExportAll ReferenceKind = "re-export-all"
	// RefRequire is a CommonJS require call with a literal argument.
	RefRequire ReferenceKind = "require"
	// RefImportEquals is TypeScript's `import x = require("...")`.
	RefImportEquals ReferenceKind = "import-equals"
	// RefDynamicImport is `import("...")` with a literal argument.
	RefDynamicImport ReferenceKind = "dynamic-import"
)

// Reference is a directed edge from a source file to a module specifier.
type Reference struct {
	Specifier string
	Kind      ReferenceKind
	Line      int
}
