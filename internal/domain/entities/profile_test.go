package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agentProperties = `attribute.parents = default
attribute.abstract = true
feature.camel = camel
repository.camel = mvn:org.apache.camel/features/2.17/xml/features
lib.guava = mvn:com.google/guava/19.0
`

func newTestProfile(t *testing.T, files map[string][]byte) *Profile {
	t.Helper()
	p, err := NewProfile("1.0", "mq-broker", []string{"default"}, files, "rev-1", false)
	require.NoError(t, err)
	return p
}

// ===== CONSTRUCTION =====

func Test_NewProfile_DerivesConfigurations(t *testing.T) {
	p := newTestProfile(t, map[string][]byte{
		"io.fabric8.agent.properties":     []byte(agentProperties),
		"org.ops4j.pax.logging.properties": []byte("log4j.rootLogger=INFO\n"),
		"ReadMe.md":                        []byte("# Broker\nA broker profile\n"),
		"icon.svg":                         []byte("<svg/>"),
		"jetty.xml":                        []byte("<Configure/>"),
	})

	assert.Equal(t, []string{"io.fabric8.agent", "org.ops4j.pax.logging"}, p.PIDs())
	assert.Len(t, p.FileNames(), 5)

	logging := p.Configuration("org.ops4j.pax.logging")
	v, ok := logging.Get("log4j.rootLogger")
	require.True(t, ok)
	assert.Equal(t, "INFO", v)
}

func Test_NewProfile_NonPropertiesFilesDoNotAffectConfigurations(t *testing.T) {
	base := newTestProfile(t, map[string][]byte{
		"io.fabric8.agent.properties": []byte(agentProperties),
	})
	withExtras := newTestProfile(t, map[string][]byte{
		"io.fabric8.agent.properties": []byte(agentProperties),
		"Summary.md":                  []byte("summary"),
		"icon.png":                    {0x89, 0x50},
		"broker.properties.bak":       []byte("x=y"),
	})

	assert.Equal(t, base.PIDs(), withExtras.PIDs())
	for _, pid := range base.PIDs() {
		assert.True(t, base.Configuration(pid).Equal(withExtras.Configuration(pid)), pid)
	}
}

func Test_NewProfile_ExtractsAttributes(t *testing.T) {
	p := newTestProfile(t, map[string][]byte{
		"io.fabric8.agent.properties": []byte(agentProperties),
	})

	assert.Equal(t, map[string]string{
		"parents":  "default",
		"abstract": "true",
	}, p.Attributes())

	_, ok := p.Attribute("feature.camel")
	assert.False(t, ok, "non-attribute keys must not leak into attributes")
}

func Test_NewProfile_KeepsFileOrderInConfiguration(t *testing.T) {
	p := newTestProfile(t, map[string][]byte{
		"io.fabric8.agent.properties": []byte("z=1\na=2\nm=3\n"),
	})

	assert.Equal(t, []string{"z", "a", "m"}, p.Configuration(AgentPID).Keys())
}

func Test_NewProfile_DoesNotExpandProperties(t *testing.T) {
	p := newTestProfile(t, map[string][]byte{
		"app.properties": []byte("url=${host}:${port}\n"),
	})

	v, _ := p.Configuration("app").Get("url")
	assert.Equal(t, "${host}:${port}", v)
}

func Test_NewProfile_EmptyID(t *testing.T) {
	_, err := NewProfile("1.0", "", nil, nil, "", false)
	assert.Error(t, err)
}

func Test_NewProfile_InvalidProperties(t *testing.T) {
	_, err := NewProfile("1.0", "broken", nil, map[string][]byte{
		"bad.properties": []byte("key=\\uZZZZ\n"),
	}, "", false)

	require.Error(t, err)
	var parseErr *ConfigurationParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "bad.properties", parseErr.FileName)
}

func Test_NewProfile_CopiesInputs(t *testing.T) {
	parents := []string{"default"}
	files := map[string][]byte{"a.txt": []byte("one")}

	p, err := NewProfile("1.0", "copy", parents, files, "", false)
	require.NoError(t, err)

	parents[0] = "mutated"
	files["a.txt"][0] = 'X'
	files["b.txt"] = []byte("new")

	assert.Equal(t, []string{"default"}, p.Parents())
	data, _ := p.File("a.txt")
	assert.Equal(t, "one", string(data))
	_, ok := p.File("b.txt")
	assert.False(t, ok)
}

func Test_Profile_AccessorsReturnCopies(t *testing.T) {
	p := newTestProfile(t, map[string][]byte{"a.txt": []byte("one")})

	p.Parents()[0] = "x"
	p.Files()["a.txt"][0] = 'X'
	p.Attributes()["new"] = "value"

	assert.Equal(t, []string{"default"}, p.Parents())
	data, _ := p.File("a.txt")
	assert.Equal(t, "one", string(data))
	_, ok := p.Attribute("new")
	assert.False(t, ok)
}

// ===== COPY ON WRITE =====

func Test_Profile_WithFile(t *testing.T) {
	p := newTestProfile(t, map[string][]byte{})

	updated, err := p.WithFile("app.properties", []byte("k=v\n"))
	require.NoError(t, err)

	assert.Empty(t, p.PIDs(), "original must not change")
	assert.Equal(t, []string{"app"}, updated.PIDs())
	assert.False(t, p.Equal(updated))
}

func Test_Profile_WithoutFile(t *testing.T) {
	p := newTestProfile(t, map[string][]byte{"app.properties": []byte("k=v\n")})

	updated, err := p.WithoutFile("app.properties")
	require.NoError(t, err)

	assert.Equal(t, []string{"app"}, p.PIDs())
	assert.Empty(t, updated.PIDs())
}

func Test_Profile_WithParents(t *testing.T) {
	p := newTestProfile(t, nil)

	updated, err := p.WithParents([]string{"default", "karaf"})
	require.NoError(t, err)

	assert.Equal(t, []string{"default"}, p.Parents())
	assert.Equal(t, []string{"default", "karaf"}, updated.Parents())
}

// ===== EQUALITY =====

func Test_Profile_Equal(t *testing.T) {
	files := map[string][]byte{
		"io.fabric8.agent.properties": []byte(agentProperties),
		"notes.txt":                   []byte("hello"),
	}
	base, err := NewProfile("1.0", "p", []string{"a", "b"}, files, "rev-1", false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		version string
		id      string
		parents []string
		files   map[string][]byte
		want    bool
	}{
		{"identical content", "1.0", "p", []string{"a", "b"}, files, true},
		{"different version", "1.1", "p", []string{"a", "b"}, files, false},
		{"different id", "1.0", "q", []string{"a", "b"}, files, false},
		{"parent order matters", "1.0", "p", []string{"b", "a"}, files, false},
		{
			name: "different configuration", version: "1.0", id: "p", parents: []string{"a", "b"},
			files: map[string][]byte{
				"io.fabric8.agent.properties": []byte("feature.x = x\n"),
				"notes.txt":                   []byte("hello"),
			},
		},
		{
			name: "different plain file", version: "1.0", id: "p", parents: []string{"a", "b"},
			files: map[string][]byte{
				"io.fabric8.agent.properties": []byte(agentProperties),
				"notes.txt":                   []byte("bye"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other, err := NewProfile(tt.version, tt.id, tt.parents, tt.files, "rev-2", true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, base.Equal(other))
			assert.Equal(t, tt.want, other.Equal(base))
		})
	}
}

func Test_Profile_EqualNil(t *testing.T) {
	p := newTestProfile(t, nil)
	var nilProfile *Profile

	assert.False(t, p.Equal(nil))
	assert.True(t, nilProfile.Equal(nil))
}

func Test_Profile_Compare(t *testing.T) {
	a, _ := NewProfile("1.0", "a", nil, nil, "", false)
	b, _ := NewProfile("1.0", "b", nil, nil, "", false)

	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(a))
}
