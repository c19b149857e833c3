// Package classifier maps file names to semantic categories.
//
// Categories drive the contextual prefix and the file_type metadata field.
// Matching is ordered: categories declared earlier win over later ones, and
// a name matching no pattern falls back to CategoryOther. Precedence is an
// observable contract, so the table order is fixed and tested.
package classifier

import "path"

// Categories assigned by Classify. CategoryOther is the fallback.
const (
	CategoryCSharp        = "csharp"
	CategoryProject       = "project"
	CategoryConfig        = "config"
	CategoryDocumentation = "documentation"
	CategoryWeb           = "web"
	CategoryTest          = "test"
	CategoryMigration     = "migration"
	CategoryOther         = "other"
)

// rule pairs a category with the glob patterns that select it.
type rule struct {
	category string
	patterns []string
}

// defaultRules is the ordered category table. Matching is case-sensitive,
// which is why *test*.cs, *Test*.cs and *Tests*.cs are separate entries.
var defaultRules = []rule{
	{CategoryCSharp, []string{"*.cs"}},
	{CategoryProject, []string{"*.csproj", "*.sln"}},
	{CategoryConfig, []string{"*.json", "*.xml", "*.yml", "*.yaml", "appsettings*.json"}},
	{CategoryDocumentation, []string{"*.md", "*.rst", "*.txt"}},
	{CategoryWeb, []string{"*.html", "*.css", "*.js", "*.ts"}},
	{CategoryTest, []string{"*test*.cs", "*Test*.cs", "*Tests*.cs"}},
	{CategoryMigration, []string{"*Migration*.cs", "*migration*.cs"}},
}

// Classifier classifies file names against an ordered pattern table.
type Classifier struct {
	rules []rule
}

// New creates a classifier with the default category table.
func New() *Classifier {
	return &Classifier{rules: defaultRules}
}

// Classify returns the category for fileName. The first category whose
// pattern list contains a match wins; CategoryOther when none match.
// fileName must be a bare name, not a path.
func (c *Classifier) Classify(fileName string) string {
	for _, r := range c.rules {
		for _, pattern := range r.patterns {
			if matched, err := path.Match(pattern, fileName); err == nil && matched {
				return r.category
			}
		}
	}
	return CategoryOther
}

// Categories returns every category Classify can produce, in precedence
// order, with the fallback last.
func Categories() []string {
	categories := make([]string, 0, len(defaultRules)+1)
	for _, r := range defaultRules {
		categories = append(categories, r.category)
	}
	return append(categories, CategoryOther)
}
