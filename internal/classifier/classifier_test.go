package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		fileName string
		want     string
	}{
		{"Customer.cs", CategoryCSharp},
		{"Web.csproj", CategoryProject},
		{"CleanArchitecture.sln", CategoryProject},
		{"appsettings.json", CategoryConfig},
		{"appsettings.Development.json", CategoryConfig},
		{"nuget.xml", CategoryConfig},
		{"pipeline.yml", CategoryConfig},
		{"stack.yaml", CategoryConfig},
		{"README.md", CategoryDocumentation},
		{"notes.rst", CategoryDocumentation},
		{"LICENSE.txt", CategoryDocumentation},
		{"index.html", CategoryWeb},
		{"site.css", CategoryWeb},
		{"app.js", CategoryWeb},
		{"main.ts", CategoryWeb},
		{"Makefile", CategoryOther},
		{"run.sh", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.fileName))
		})
	}
}

// Test and migration files also match *.cs, and csharp is declared first,
// so declaration order decides the outcome.
func TestClassifyPrecedence(t *testing.T) {
	c := New()

	tests := []struct {
		fileName string
		want     string
	}{
		{"CustomerTests.cs", CategoryCSharp},
		{"unittest.cs", CategoryCSharp},
		{"InitialMigration.cs", CategoryCSharp},
		{"20240101_migration.cs", CategoryCSharp},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.fileName))
		})
	}
}

func TestClassifyCaseSensitive(t *testing.T) {
	c := New()

	// Uppercase extensions do not match the lowercase patterns.
	assert.Equal(t, CategoryOther, c.Classify("README.MD"))
	assert.Equal(t, CategoryOther, c.Classify("Program.CS"))
}

func TestClassifyReturnsKnownCategory(t *testing.T) {
	c := New()
	known := map[string]bool{}
	for _, cat := range Categories() {
		known[cat] = true
	}

	for _, name := range []string{"a.cs", "b.md", "c.bin", "d", "e.sln", "f.ts"} {
		assert.True(t, known[c.Classify(name)], "category for %q not in fixed set", name)
	}
}

func TestCategoriesOrder(t *testing.T) {
	assert.Equal(t, []string{
		CategoryCSharp, CategoryProject, CategoryConfig, CategoryDocumentation,
		CategoryWeb, CategoryTest, CategoryMigration, CategoryOther,
	}, Categories())
}
