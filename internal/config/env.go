package config

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// EnvFileVar names an extra dotenv file loaded before the defaults.
const EnvFileVar = "FORENSIC_ENV"

var reAssign = regexp.MustCompile(`^\s*(?:export\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*?)\s*$`)

// parseLine splits one dotenv line into key and value.
// Double-quoted values understand \\ and \"; single-quoted values are literal.
func parseLine(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	m := reAssign.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	key, val = m[1], m[2]
	switch {
	case len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"':
		val = val[1 : len(val)-1]
		val = strings.ReplaceAll(val, `\"`, `"`)
		val = strings.ReplaceAll(val, `\\`, `\`)
	case len(val) >= 2 && val[0] == '\'' && val[len(val)-1] == '\'':
		val = val[1 : len(val)-1]
	default:
		if i := strings.Index(val, " #"); i >= 0 {
			val = strings.TrimSpace(val[:i])
		}
	}
	return key, val, true
}

// LoadEnv loads shell-style env files into the process environment.
// Missing files are skipped. Variables already present in the environment
// are left alone, so a real export always beats a file.
// It returns the keys it set.
func LoadEnv(paths ...string) []string {
	var set []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		scan := bufio.NewScanner(f)
		for scan.Scan() {
			key, val, ok := parseLine(scan.Text())
			if !ok {
				continue
			}
			if _, exists := os.LookupEnv(key); exists {
				continue
			}
			if os.Setenv(key, val) == nil {
				set = append(set, key)
			}
		}
		f.Close()
	}
	return set
}

// LoadDefaultEnv loads $FORENSIC_ENV, ~/.forensic.env and ./.env, in that order.
func LoadDefaultEnv() []string {
	paths := []string{strings.TrimSpace(os.Getenv(EnvFileVar))}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".forensic.env"))
	}
	paths = append(paths, ".env")
	return LoadEnv(paths...)
}
