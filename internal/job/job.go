// Package job loads extraction jobs: a schema, an instruction and the
// pacing and file layout of one pipeline run.
package job

import (
	"embed"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/extract-cli/internal/extract"
	"github.com/sells-group/extract-cli/internal/model"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Kind selects how a job is driven.
type Kind string

const (
	// KindPage extracts from a single URL and writes the extracted array.
	KindPage Kind = "page"
	// KindBatch crawls every item of an input list.
	KindBatch Kind = "batch"
)

// Job is one pipeline definition.
type Job struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// URL is the page crawled by a page job.
	URL string `yaml:"url"`
	// SiteRoot is joined with each batch item's URL fragment.
	SiteRoot string `yaml:"site_root"`
	// Input is the item list of a batch job: a path or URL.
	Input string `yaml:"input"`

	Provider            string            `yaml:"provider"`
	Instruction         string            `yaml:"instruction"`
	Schema              model.Schema      `yaml:"schema"`
	ChunkTokenThreshold int               `yaml:"chunk_token_threshold"`
	OverlapRate         float64           `yaml:"overlap_rate"`
	DisableChunking     bool              `yaml:"disable_chunking"`
	InputFormat         model.InputFormat `yaml:"input_format"`
	CacheMode           model.CacheMode   `yaml:"cache_mode"`
	Generation          model.Generation  `yaml:"generation"`

	Interval     Duration `yaml:"interval"`
	Output       string   `yaml:"output"`
	RunLog       string   `yaml:"run_log"`
	SummaryLog   string   `yaml:"summary_log"`
	SummaryLabel string   `yaml:"summary_label"`
}

// Duration is a time.Duration read from strings like "11s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return eris.Wrap(err, "job: decode duration")
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return eris.Wrapf(err, "job: parse duration %q", s)
	}
	d.Duration = v
	return nil
}

// Parse decodes and validates a job definition.
func Parse(data []byte) (*Job, error) {
	var j Job
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, eris.Wrap(err, "job: parse yaml")
	}
	j.applyDefaults()
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

func (j *Job) applyDefaults() {
	if j.Kind == "" {
		j.Kind = KindBatch
		if j.URL != "" && j.Input == "" {
			j.Kind = KindPage
		}
	}
	if j.Output == "" {
		j.Output = j.Name + "_results.json"
	}
	if j.Kind == KindBatch {
		if j.RunLog == "" {
			j.RunLog = "run.log"
		}
		if j.SummaryLog == "" {
			j.SummaryLog = "runlog.log"
		}
		if j.SummaryLabel == "" {
			j.SummaryLabel = j.Name
		}
	}
}

// Validate reports the first problem that would stop the job from running.
func (j *Job) Validate() error {
	if j.Name == "" {
		return eris.New("job: name is required")
	}
	if err := j.Schema.Validate(); err != nil {
		return eris.Wrapf(err, "job: %s", j.Name)
	}
	if j.InputFormat != "" && !j.InputFormat.Valid() {
		return eris.Errorf("job: %s: unknown input_format %q", j.Name, j.InputFormat)
	}
	switch j.CacheMode {
	case "", model.CacheBypass, model.CacheEnabled:
	default:
		return eris.Errorf("job: %s: unknown cache_mode %q", j.Name, j.CacheMode)
	}
	if j.Interval.Duration < 0 {
		return eris.Errorf("job: %s: interval must be >= 0", j.Name)
	}
	switch j.Kind {
	case KindPage:
		if j.URL == "" {
			return eris.Errorf("job: %s: url is required for page jobs", j.Name)
		}
	case KindBatch:
		if j.Input == "" {
			return eris.Errorf("job: %s: input is required for batch jobs", j.Name)
		}
		if j.SiteRoot != "" {
			if u, err := url.Parse(j.SiteRoot); err != nil || u.Host == "" {
				return eris.Errorf("job: %s: invalid site_root %q", j.Name, j.SiteRoot)
			}
		}
	default:
		return eris.Errorf("job: %s: unknown kind %q", j.Name, j.Kind)
	}
	return nil
}

// Request builds the crawl request shared by every item of the job.
func (j *Job) Request() model.CrawlRequest {
	return extract.BuildRequest(j.Schema, extract.Options{
		Provider:            j.Provider,
		Instruction:         j.Instruction,
		ChunkTokenThreshold: j.ChunkTokenThreshold,
		OverlapRate:         j.OverlapRate,
		DisableChunking:     j.DisableChunking,
		InputFormat:         j.InputFormat,
		Temperature:         j.Generation.Temperature,
		MaxTokens:           j.Generation.MaxTokens,
		CacheMode:           j.CacheMode,
	})
}

// ItemURL resolves a batch item's URL. Absolute URLs are used as given;
// anything else is appended to the site root. An item without a URL
// resolves to "" rather than to the site root itself.
func (j *Job) ItemURL(item model.BatchItem) string {
	if !item.HasURL() {
		return ""
	}
	if u, err := url.Parse(item.URL); err == nil && u.IsAbs() {
		return item.URL
	}
	return j.SiteRoot + item.URL
}

// Load resolves nameOrPath as a YAML file, then as <dir>/<name>.yaml, then
// as a built-in job.
func Load(nameOrPath, dir string) (*Job, error) {
	candidates := []string{nameOrPath}
	if dir != "" && !strings.ContainsAny(nameOrPath, `/\`) {
		candidates = append(candidates,
			filepath.Join(dir, nameOrPath+".yaml"),
			filepath.Join(dir, nameOrPath+".yml"),
		)
	}
	for _, path := range candidates {
		fi, err := os.Stat(path)
		if err != nil || fi.IsDir() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "job: read %s", path)
		}
		j, err := Parse(data)
		if err != nil {
			return nil, eris.Wrapf(err, "job: load %s", path)
		}
		return j, nil
	}

	data, err := builtinFS.ReadFile("builtin/" + nameOrPath + ".yaml")
	if err != nil {
		return nil, eris.Errorf("job: %q is not a file or built-in job (built-ins: %s)", nameOrPath, strings.Join(Builtins(), ", "))
	}
	return Parse(data)
}

// Builtins lists the names of the embedded jobs.
func Builtins() []string {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}
