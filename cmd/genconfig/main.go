// Package main implements the genconfig tool that writes config.default.toml
// from config.ExampleConfig(), annotated with config.ConfigDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/keycap/internal/config"
)

func main() {
	// go generate runs from internal/config/; the root package embeds the file.
	outPath := flag.String("o", "../../config.default.toml", "output path")
	flag.Parse()

	result, err := generate(config.ExampleConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, []byte(result), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *outPath, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *outPath)
}

// generate encodes cfg as TOML and annotates it with the field docs.
func generate(cfg *config.Config) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	out := []string{
		"# ///////////////////////////////////////////////",
		"# Keycap Configuration",
		"# ///////////////////////////////////////////////",
		"",
		"# Render every icon with `keycap batch`, keep them current with",
		"# `keycap watch`, or answer render requests with `keycap serve`.",
		"",
	}

	var sectionStack []string
	emittedKeys := map[string]bool{}
	iconsIntro := false

	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[[") {
			injectOmitted(&out, sectionStack, emittedKeys)

			section := strings.Trim(trimmed, "[] ")
			sectionStack = parseSectionPath(section)

			if sectionStack[0] == "icons" {
				// One intro above the first icon table, with or without a
				// bare [icons] header.
				if !iconsIntro {
					iconsIntro = true
					out = append(out, "", "# ///// Icons /////", "")
					appendComment(&out, config.ConfigDocs["icons"].Comment)
				}
				if len(sectionStack) == 2 {
					out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionName(section)), "")
				}
			} else {
				out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionName(section)), "")
				appendComment(&out, config.ConfigDocs[section].Comment)
			}
			out = append(out, trimmed)
			continue
		}

		if !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#") {
			out = append(out, trimmed)
			continue
		}

		key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
		fullPath := key
		if len(sectionStack) > 0 {
			fullPath = strings.Join(sectionStack, ".") + "." + key
		}
		emittedKeys[fullPath] = true

		doc := config.ConfigDocs[fullPath]
		appendComment(&out, doc.Comment)
		out = append(out, trimmed)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
	}
	injectOmitted(&out, sectionStack, emittedKeys)

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n", nil
}

// appendComment appends each line of comment as a TOML comment.
func appendComment(out *[]string, comment string) {
	if comment == "" {
		return
	}
	for _, cl := range strings.Split(comment, "\n") {
		*out = append(*out, "# "+cl)
	}
}

// injectOmitted appends commented-out entries for [config.ConfigDocs] keys
// of the current section that the encoder left out, typically omitempty
// fields holding their zero value. Keys are sorted for deterministic output.
func injectOmitted(out *[]string, sectionStack []string, emitted map[string]bool) {
	if len(sectionStack) == 0 {
		return
	}
	prefix := strings.Join(sectionStack, ".") + "."

	var omitted []string
	for path := range config.ConfigDocs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := config.ConfigDocs[path]
		*out = append(*out, "")
		appendComment(out, doc.Comment)
		for _, alt := range doc.Alternatives {
			*out = append(*out, "# "+alt)
		}
		emitted[path] = true
	}
}

// parseSectionPath splits a dotted TOML section header (e.g.
// "defaults.border") into its path segments.
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName returns a display name for a TOML section header: the last
// dotted segment capitalized, or "Icon: NAME" for icon tables. For example,
// "defaults.border" yields "Border".
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	if len(parts) == 2 && parts[0] == "icons" {
		return "Icon: " + parts[1]
	}
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
