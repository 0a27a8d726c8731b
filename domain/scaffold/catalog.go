// Package scaffold holds the static per-language project layout table.
// Adding a language is a data change: one more catalog row, no new
// control flow anywhere else.
package scaffold

import (
	"sort"
	"strings"
)

// Language identifies the primary language of a node's codebase.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageGo         Language = "go"
	LanguageSwift      Language = "swift"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageRust       Language = "rust"
	LanguageHTML       Language = "html"
)

// Entry describes the on-disk convention for one language: where the
// main file lives, which scaffold directories exist, and the manifest
// skeleton emitted once at project creation.
type Entry struct {
	Language    Language
	DisplayName string
	Extension   string

	// Canonical main file, relative to the project root.
	MainFilePath string
	MainFileName string

	// Scaffold subdirectories created at materialization time.
	Directories []string

	// Optional dependency manifest, written only if absent.
	ManifestPath     string
	ManifestTemplate string

	// Content of a freshly created main file.
	StarterContent string

	// Interpreted languages get an isolated runtime environment
	// directory under the project root.
	UsesEnvironment bool
	EnvironmentDir  string

	// Runtime version pinned into the manifest when the installed
	// toolchain cannot be probed.
	DefaultRuntime string
}

// Manifest renders the manifest template for a concrete project.
func (e Entry) Manifest(projectName, runtimeVersion string) string {
	if runtimeVersion == "" {
		runtimeVersion = e.DefaultRuntime
	}
	r := strings.NewReplacer(
		"{{name}}", projectName,
		"{{runtime}}", runtimeVersion,
	)
	return r.Replace(e.ManifestTemplate)
}

var catalog = map[Language]Entry{
	LanguagePython: {
		Language:     LanguagePython,
		DisplayName:  "Python",
		Extension:    ".py",
		MainFilePath: "src/main.py",
		MainFileName: "main.py",
		Directories:  []string{"src", "tests"},
		ManifestPath: "pyproject.toml",
		ManifestTemplate: `[project]
name = "{{name}}"
version = "0.1.0"
requires-python = ">={{runtime}}"
dependencies = []
`,
		StarterContent: `def main():
    print("Hello from {name}")


if __name__ == "__main__":
    main()
`,
		UsesEnvironment: true,
		EnvironmentDir:  ".venv",
		DefaultRuntime:  "3.11",
	},
	LanguageGo: {
		Language:     LanguageGo,
		DisplayName:  "Go",
		Extension:    ".go",
		MainFilePath: "main.go",
		MainFileName: "main.go",
		Directories:  []string{"cmd", "internal"},
		ManifestPath: "go.mod",
		ManifestTemplate: `module {{name}}

go {{runtime}}
`,
		StarterContent: `package main

import "fmt"

func main() {
	fmt.Println("Hello from {name}")
}
`,
		DefaultRuntime: "1.24",
	},
	LanguageSwift: {
		Language:     LanguageSwift,
		DisplayName:  "Swift",
		Extension:    ".swift",
		MainFilePath: "Sources/main.swift",
		MainFileName: "main.swift",
		Directories:  []string{"Sources", "Tests"},
		ManifestPath: "Package.swift",
		ManifestTemplate: `// swift-tools-version:{{runtime}}
import PackageDescription

let package = Package(
    name: "{{name}}",
    targets: [
        .executableTarget(name: "{{name}}", path: "Sources")
    ]
)
`,
		StarterContent: `print("Hello from {name}")
`,
		DefaultRuntime: "5.9",
	},
	LanguageJavaScript: {
		Language:     LanguageJavaScript,
		DisplayName:  "JavaScript",
		Extension:    ".js",
		MainFilePath: "src/index.js",
		MainFileName: "index.js",
		Directories:  []string{"src", "public"},
		ManifestPath: "package.json",
		ManifestTemplate: `{
  "name": "{{name}}",
  "version": "0.1.0",
  "main": "src/index.js",
  "engines": { "node": ">={{runtime}}" }
}
`,
		StarterContent: `console.log("Hello from {name}");
`,
		DefaultRuntime: "20",
	},
	LanguageTypeScript: {
		Language:     LanguageTypeScript,
		DisplayName:  "TypeScript",
		Extension:    ".ts",
		MainFilePath: "src/index.ts",
		MainFileName: "index.ts",
		Directories:  []string{"src", "dist"},
		ManifestPath: "package.json",
		ManifestTemplate: `{
  "name": "{{name}}",
  "version": "0.1.0",
  "main": "dist/index.js",
  "engines": { "node": ">={{runtime}}" },
  "devDependencies": { "typescript": "^5.0.0" }
}
`,
		StarterContent: `console.log("Hello from {name}");
`,
		DefaultRuntime: "20",
	},
	LanguageRust: {
		Language:     LanguageRust,
		DisplayName:  "Rust",
		Extension:    ".rs",
		MainFilePath: "src/main.rs",
		MainFileName: "main.rs",
		Directories:  []string{"src"},
		ManifestPath: "Cargo.toml",
		ManifestTemplate: `[package]
name = "{{name}}"
version = "0.1.0"
edition = "{{runtime}}"

[dependencies]
`,
		StarterContent: `fn main() {
    println!("Hello from {name}");
}
`,
		DefaultRuntime: "2021",
	},
	LanguageHTML: {
		Language:     LanguageHTML,
		DisplayName:  "HTML",
		Extension:    ".html",
		MainFilePath: "index.html",
		MainFileName: "index.html",
		Directories:  []string{"assets", "css", "js"},
		StarterContent: `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{name}</title>
</head>
<body>
  <h1>Hello from {name}</h1>
</body>
</html>
`,
	},
}

// Lookup returns the catalog entry for a language.
func Lookup(lang Language) (Entry, bool) {
	e, ok := catalog[lang]
	return e, ok
}

// IsValid reports whether the language has a catalog entry.
func IsValid(lang Language) bool {
	_, ok := catalog[lang]
	return ok
}

// Languages returns all catalog languages in stable order.
func Languages() []Language {
	langs := make([]Language, 0, len(catalog))
	for l := range catalog {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// StarterFor renders the starter main-file content for a project name.
func (e Entry) StarterFor(projectName string) string {
	return strings.ReplaceAll(e.StarterContent, "{name}", projectName)
}
