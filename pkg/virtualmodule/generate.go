package virtualmodule

import (
	"strconv"
	"strings"

	"github.com/vango-dev/ssrpages/pkg/pageconfig"
)

// Options select generation variants.
type Options struct {
	// IncludeAssetsImportedByServer appends an import of the server
	// module's asset-discovery variant to client modules.
	IncludeAssetsImportedByServer bool

	// IsDev marks a development build.
	IsDev bool
}

// importVar names the binding of the n-th imported code file.
func importVar(n int) string {
	return "configValue" + strconv.Itoa(n)
}

// GenerateSource returns the module source for page on one side.
// The output depends only on its arguments.
func GenerateSource(page *pageconfig.PageConfigData, clientSide bool, opts Options) string {
	side := pageconfig.SideServer
	if clientSide {
		side = pageconfig.SideClient
	}
	entries := pageconfig.Resolve(page, side)

	var imports, body strings.Builder
	body.WriteString("export default [\n")
	for n, e := range entries {
		path := strconv.Quote(e.CodeFilePath)
		imports.WriteString("import * as " + importVar(n) + " from " + path + ";\n")
		body.WriteString("  {\n")
		body.WriteString("    configName: " + strconv.Quote(e.ConfigName) + ",\n")
		body.WriteString("    codeFilePath: " + path + ",\n")
		body.WriteString("    codeFileExports: " + importVar(n) + ",\n")
		body.WriteString("  },\n")
	}
	body.WriteString("];\n")

	if opts.IncludeAssetsImportedByServer && clientSide && !opts.IsDev {
		server := ID{PageID: page.PageID}.AssetsVariant()
		body.WriteString("import " + strconv.Quote(server.String()) + ";\n")
	}

	return imports.String() + body.String()
}
