package repository

import (
	"fmt"
	"strings"
)

// MavenPath maps "group/artifact/version[/type[/classifier]]" to its path in
// a Maven repository layout. The type defaults to "xml" and the classifier
// to "features", which is how feature descriptors are published.
func MavenPath(coords string) (string, error) {
	// Drop an embedded repository URL ("mvn:http://repo!group/...").
	if i := strings.LastIndex(coords, "!"); i >= 0 {
		coords = coords[i+1:]
	}

	parts := strings.Split(coords, "/")
	if len(parts) < 3 || len(parts) > 5 {
		return "", fmt.Errorf("invalid maven coordinates %q", coords)
	}
	for _, p := range parts[:3] {
		if p == "" {
			return "", fmt.Errorf("invalid maven coordinates %q", coords)
		}
	}

	group, artifact, version := parts[0], parts[1], parts[2]
	typ, classifier := "xml", "features"
	if len(parts) > 3 && parts[3] != "" {
		typ = parts[3]
		classifier = ""
	}
	if len(parts) > 4 {
		classifier = parts[4]
	}

	file := artifact + "-" + version
	if classifier != "" {
		file += "-" + classifier
	}
	file += "." + typ

	return strings.ReplaceAll(group, ".", "/") + "/" + artifact + "/" + version + "/" + file, nil
}
