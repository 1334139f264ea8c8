package enrichment

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed seed_corpus.yaml
var defaultCorpus []byte

// Topic is a subject seed notes are written about.
type Topic struct {
	Name    string   `yaml:"name"`
	Details []string `yaml:"details"`
}

// Template shapes a seed note. {topic} and {detail} are substituted.
type Template struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Corpus is the material seed notes are generated from.
type Corpus struct {
	Topics    []Topic    `yaml:"topics"`
	Templates []Template `yaml:"templates"`
}

// Draft is a generated note before enrichment.
type Draft struct {
	Title   string
	Content string
}

// DefaultCorpus parses the embedded seed corpus.
func DefaultCorpus() (*Corpus, error) {
	return ParseCorpus(defaultCorpus)
}

// ParseCorpus decodes a YAML corpus and checks it can produce notes.
func ParseCorpus(data []byte) (*Corpus, error) {
	corpus := &Corpus{}
	if err := yaml.Unmarshal(data, corpus); err != nil {
		return nil, errors.Wrap(err, "failed to parse seed corpus")
	}
	if len(corpus.Topics) == 0 {
		return nil, errors.New("seed corpus has no topics")
	}
	if len(corpus.Templates) == 0 {
		return nil, errors.New("seed corpus has no templates")
	}
	return corpus, nil
}

// Drafts returns count notes cycling through topics, then templates.
// Output is deterministic and every title is unique.
func (c *Corpus) Drafts(count int) []Draft {
	drafts := make([]Draft, 0, count)
	for i := 0; i < count; i++ {
		topic := c.Topics[i%len(c.Topics)]
		tmpl := c.Templates[(i/len(c.Topics))%len(c.Templates)]

		detail := ""
		if len(topic.Details) > 0 {
			detail = topic.Details[(i/len(c.Topics))%len(topic.Details)]
		}
		r := strings.NewReplacer("{topic}", topic.Name, "{detail}", detail)
		drafts = append(drafts, Draft{
			Title:   fmt.Sprintf("%s #%d", r.Replace(tmpl.Title), i+1),
			Content: strings.TrimSpace(r.Replace(tmpl.Body)),
		})
	}
	return drafts
}
