// Package virtualmodule generates the per-page code modules a bundler
// compiles for each side.
//
// A virtual module has no file on disk. Its id names the page and the
// side it is built for:
//
//	virtual:ssrpages:pageCode:client:/pages/index
//	virtual:ssrpages:pageCode:server:/pages/index
//
// The generated source eagerly imports every code file the page resolves
// to on that side and default-exports a list of
// {configName, codeFilePath, codeFileExports} records in resolution order.
//
// At runtime the Registry plays the bundler's role: it maps ids to loader
// functions returning the same records with Go export tables.
package virtualmodule
