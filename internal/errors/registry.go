package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	DocURL   string
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Project Configuration Errors (E120-E149)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid ssrpages.json",
		DocURL:   "https://ssrpages.dev/docs/errors/E120",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		DocURL:   "https://ssrpages.dev/docs/errors/E122",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Project not found",
		DocURL:   "https://ssrpages.dev/docs/errors/E141",
	},

	// ============================================
	// Usage Errors (E200-E229)
	// ============================================

	"E201": {
		Category: CategoryUsage,
		Message:  "Malformed virtual module id",
		DocURL:   "https://ssrpages.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryUsage,
		Message:  "Unknown page id",
		DocURL:   "https://ssrpages.dev/docs/errors/E202",
	},
	"E203": {
		Category: CategoryUsage,
		Message:  "Invalid module loader registration",
		DocURL:   "https://ssrpages.dev/docs/errors/E203",
	},
	"E204": {
		Category: CategoryUsage,
		Message:  "Code file not registered",
		DocURL:   "https://ssrpages.dev/docs/errors/E204",
	},
	"E205": {
		Category: CategoryUsage,
		Message:  "No loader registered for virtual module",
		DocURL:   "https://ssrpages.dev/docs/errors/E205",
	},
	"E210": {
		Category: CategoryUsage,
		Message:  "Page context URL fields are inconsistent",
		DocURL:   "https://ssrpages.dev/docs/errors/E210",
	},
	"E211": {
		Category: CategoryUsage,
		Message:  "Page context routeParams is not a plain mapping",
		DocURL:   "https://ssrpages.dev/docs/errors/E211",
	},
	"E212": {
		Category: CategoryUsage,
		Message:  "Page has no rendering unit",
		DocURL:   "https://ssrpages.dev/docs/errors/E212",
	},
	"E213": {
		Category: CategoryUsage,
		Message:  "Page context exports are not plain mappings",
		DocURL:   "https://ssrpages.dev/docs/errors/E213",
	},
	"E214": {
		Category: CategoryUsage,
		Message:  "Loaded page does not correspond to the route match",
		DocURL:   "https://ssrpages.dev/docs/errors/E214",
	},
	"E215": {
		Category: CategoryUsage,
		Message:  "Render invoked without a resolved page context",
		DocURL:   "https://ssrpages.dev/docs/errors/E215",
	},
	"E220": {
		Category: CategoryUsage,
		Message:  "Cannot prefetch or client-route an external URL",
		DocURL:   "https://ssrpages.dev/docs/errors/E220",
	},
	"E221": {
		Category: CategoryUsage,
		Message:  "Invalid prefetchStaticAssets value",
		DocURL:   "https://ssrpages.dev/docs/errors/E221",
	},

	// ============================================
	// Page Configuration Errors (E230-E249)
	// ============================================

	"E230": {
		Category: CategoryConfig,
		Message:  "Failed to read page configuration",
		DocURL:   "https://ssrpages.dev/docs/errors/E230",
	},
	"E231": {
		Category: CategoryConfig,
		Message:  "Invalid config entry",
		DocURL:   "https://ssrpages.dev/docs/errors/E231",
	},
	"E232": {
		Category: CategoryConfig,
		Message:  "Unknown environment affinity",
		DocURL:   "https://ssrpages.dev/docs/errors/E232",
	},
	"E233": {
		Category: CategoryConfig,
		Message:  "Duplicate page id",
		DocURL:   "https://ssrpages.dev/docs/errors/E233",
	},

	// ============================================
	// Routing Errors (E240-E259)
	// ============================================

	"E240": {
		Category: CategoryRouting,
		Message:  "Invalid route string",
		DocURL:   "https://ssrpages.dev/docs/errors/E240",
	},
	"E241": {
		Category: CategoryRouting,
		Message:  "Route function failed",
		DocURL:   "https://ssrpages.dev/docs/errors/E241",
	},
	"E242": {
		Category: CategoryRouting,
		Message:  "Route function returned an invalid result",
		DocURL:   "https://ssrpages.dev/docs/errors/E242",
	},

	// ============================================
	// Asset Errors (E260-E279)
	// ============================================

	"E260": {
		Category: CategoryAsset,
		Message:  "Failed to fetch static asset",
		DocURL:   "https://ssrpages.dev/docs/errors/E260",
	},
	"E261": {
		Category: CategoryAsset,
		Message:  "Failed to fetch page context data",
		DocURL:   "https://ssrpages.dev/docs/errors/E261",
	},

	// ============================================
	// CLI Errors (E280-E299)
	// ============================================

	"E280": {
		Category: CategoryCLI,
		Message:  "Page configuration file not found",
		DocURL:   "https://ssrpages.dev/docs/errors/E280",
	},
	"E281": {
		Category: CategoryCLI,
		Message:  "Asset deployment not configured",
		DocURL:   "https://ssrpages.dev/docs/errors/E281",
	},
}
