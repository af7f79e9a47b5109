package pageconfig

// Entry is a loadable configuration source selected for one side.
type Entry struct {
	ConfigName   string
	CodeFilePath string
	Env          Environment
}

// Resolve selects the sources of page that are emitted as loadable code for
// side, in declaration order.
//
// Sources without a code file are skipped, as are shared-routing and
// shared-config sources and sources restricted to the opposite side.
func Resolve(page *PageConfigData, side Side) []Entry {
	entries := make([]Entry, 0, len(page.Sources))
	for _, src := range page.Sources {
		if !src.IsCode() {
			continue
		}
		if side.excludes(src.Env) {
			continue
		}
		entries = append(entries, Entry{
			ConfigName:   src.ConfigName,
			CodeFilePath: src.CodeFilePath,
			Env:          src.Env,
		})
	}
	return entries
}
