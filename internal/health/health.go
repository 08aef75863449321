// Package health implements the CLI-facing health-check and language
// listing commands: which configured language servers are actually
// present on PATH, and which fenced-code languages resolve to which
// server chains. Its output never feeds back into the
// request-forwarding engine.
package health

import (
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"

	"literate-ls/internal/config"
)

// Check reports the health of configured language servers. With an
// empty filter it walks every configured server and prints only the
// ones found on PATH, mirroring the reference implementation's "only
// show installed ones" summary view. With a non-empty filter it treats
// the argument as either a language name or a language-server name and
// reports on that one target specifically, including servers not found.
func Check(cfg config.Config, filter string, out io.Writer) {
	if filter != "" {
		checkOne(cfg, filter, out)
		return
	}

	fmt.Fprintln(out, "literate-ls health check")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Installed language servers:")

	names := make([]string, 0, len(cfg.LanguageServer))
	for name := range cfg.LanguageServer {
		names = append(names, name)
	}
	sort.Strings(names)

	type found struct {
		name, command, path string
	}
	var installed []found
	for _, name := range names {
		srv := cfg.LanguageServer[name]
		if srv.Command == "" {
			continue
		}
		if path, ok := lookPath(srv.Command); ok {
			installed = append(installed, found{name, srv.Command, path})
		}
	}

	if len(installed) == 0 {
		fmt.Fprintln(out, "  (none installed)")
		return
	}
	for _, f := range installed {
		fmt.Fprintf(out, "  %s (%s) ✓\n", f.name, f.command)
		fmt.Fprintf(out, "    path: %s\n", f.path)
	}
}

// List prints every configured fenced-code language and the ordered
// server chain it resolves to, flagging languages whose servers are
// all forbidden because they would recurse literate-ls onto itself.
func List(cfg config.Config, out io.Writer) {
	fmt.Fprintln(out, "Configured languages:")
	fmt.Fprintln(out)

	if len(cfg.Language) == 0 {
		fmt.Fprintln(out, "  (no languages configured)")
		return
	}

	languages := append([]config.Language(nil), cfg.Language...)
	sort.Slice(languages, func(i, j int) bool { return languages[i].Name < languages[j].Name })

	for _, lang := range languages {
		if len(lang.LanguageServers) == 0 {
			continue
		}
		if config.IsFormatForbidden(lang.Name) {
			fmt.Fprintf(out, "  %s -> (all language servers forbidden: %s)\n", lang.Name, forbiddenReason())
			continue
		}
		fmt.Fprintf(out, "  %s -> %s\n", lang.Name, strings.Join(lang.LanguageServers, ", "))
	}
}

func checkOne(cfg config.Config, filter string, out io.Writer) {
	if config.IsFormatForbidden(filter) {
		fmt.Fprintf(out, "  %s\n", filter)
		fmt.Fprintf(out, "    %s\n", forbiddenReason())
		return
	}

	name := config.ResolveAlias(filter)

	for _, lang := range cfg.Language {
		if lang.Name != filter {
			continue
		}
		if len(lang.LanguageServers) == 0 {
			fmt.Fprintf(out, "  %s - no language servers configured\n", filter)
			return
		}
		fmt.Fprintf(out, "  %s - language servers:\n", filter)
		for _, serverName := range lang.LanguageServers {
			srv, ok := cfg.LanguageServer[serverName]
			if !ok || srv.Command == "" {
				fmt.Fprintf(out, "    %s (not configured, possibly forbidden)\n", serverName)
				continue
			}
			if path, ok := lookPath(srv.Command); ok {
				fmt.Fprintf(out, "    ✓ %s (%s)\n", serverName, srv.Command)
				fmt.Fprintf(out, "      path: %s\n", path)
			} else {
				fmt.Fprintf(out, "    ✗ %s (%s)\n", serverName, srv.Command)
			}
		}
		return
	}

	if srv, ok := cfg.LanguageServer[name]; ok && srv.Command != "" {
		usedBy := usingLanguages(cfg, name)
		if path, ok := lookPath(srv.Command); ok {
			fmt.Fprintf(out, "  ✓ %s (%s)\n", name, srv.Command)
			fmt.Fprintf(out, "    path: %s\n", path)
		} else {
			fmt.Fprintf(out, "  ✗ %s (%s)\n", name, srv.Command)
		}
		if len(usedBy) > 0 {
			fmt.Fprintf(out, "    used by: %s\n", strings.Join(usedBy, ", "))
		}
		return
	}

	related := relatedServerNames(cfg, name)
	if len(related) == 0 {
		fmt.Fprintf(out, "  %s - not configured\n", filter)
		return
	}
	fmt.Fprintf(out, "  %s - related language servers:\n", filter)
	for _, serverName := range related {
		srv := cfg.LanguageServer[serverName]
		if path, ok := lookPath(srv.Command); ok {
			fmt.Fprintf(out, "    ✓ %s (%s)\n", serverName, srv.Command)
			fmt.Fprintf(out, "      path: %s\n", path)
		} else {
			fmt.Fprintf(out, "    ✗ %s (%s)\n", serverName, srv.Command)
		}
	}
}

func usingLanguages(cfg config.Config, serverName string) []string {
	var out []string
	for _, lang := range cfg.Language {
		for _, s := range lang.LanguageServers {
			if s == serverName {
				out = append(out, lang.Name)
				break
			}
		}
	}
	return out
}

func relatedServerNames(cfg config.Config, name string) []string {
	var out []string
	for serverName, srv := range cfg.LanguageServer {
		if srv.Command == "" {
			continue
		}
		if strings.Contains(serverName, name) || strings.HasPrefix(serverName, name) {
			out = append(out, serverName)
		}
	}
	sort.Strings(out)
	return out
}

func forbiddenReason() string {
	return "literate-ls cannot be a child of itself; spawning a server for this " +
		"documentation format would recurse without bound"
}

func lookPath(cmd string) (string, bool) {
	path, err := exec.LookPath(cmd)
	if err != nil {
		return "", false
	}
	return path, true
}
