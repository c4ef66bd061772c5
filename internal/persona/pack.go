package persona

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack adds vocabulary, redirect topics and templates on top of a base
// persona. Packs cannot change identity, thresholds or learning parameters;
// a pack file naming any field outside this struct is rejected.
type Pack struct {
	Name             string    `yaml:"name"`
	Description      string    `yaml:"description"`
	PackVersion      string    `yaml:"version"`
	Author           string    `yaml:"author"`
	Behaviors        Behaviors `yaml:"behaviors"`
	IntroPhrases     []string  `yaml:"intro_phrases"`
	Lexicon          []string  `yaml:"lexicon"`
	ForbiddenPhrases []string  `yaml:"forbidden_phrases"`
	OverridePhrases  []string  `yaml:"override_phrases"`
	Topics           []Topic   `yaml:"topics"`
	Templates        Templates `yaml:"templates"`
}

// PackInfo is a summary of a pack for listing.
type PackInfo struct {
	Name        string
	Description string
	Version     string
	Author      string
	Enabled     bool
	Path        string
	Additions   int
	Err         error
}

// LoadPacks reads every .yaml file in packsDir and merges the enabled ones
// into a copy of base. Files whose name starts with "_" are listed but not
// applied. Phrase lists are unioned, topics with a new key are appended,
// and templates are appended to their category. The merged config is
// validated again before it is returned.
func LoadPacks(packsDir string, base *Config) (*Config, []PackInfo, error) {
	var infos []PackInfo

	entries, err := os.ReadDir(packsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil, nil
		}
		return nil, nil, err
	}

	result := cloneConfig(base)

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(packsDir, entry.Name())
		baseName := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		enabled := !strings.HasPrefix(baseName, "_")

		pack, err := loadPack(path)
		if err != nil {
			infos = append(infos, PackInfo{
				Name:    baseName,
				Enabled: enabled,
				Path:    path,
				Err:     err,
			})
			continue
		}

		info := PackInfo{
			Name:        pack.Name,
			Description: pack.Description,
			Version:     pack.PackVersion,
			Author:      pack.Author,
			Enabled:     enabled,
			Path:        path,
		}
		if info.Name == "" {
			info.Name = baseName
		}

		if enabled {
			info.Additions = mergePackInto(result, pack)
		}
		infos = append(infos, info)
	}

	if err := Validate(result); err != nil {
		return nil, infos, fmt.Errorf("after merging packs: %w", err)
	}
	return result, infos, nil
}

func loadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pack Pack
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pack); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse pack %s: %w", path, err)
	}
	return &pack, nil
}

// mergePackInto merges pack into target and returns how many items were added.
func mergePackInto(target *Config, pack *Pack) int {
	added := 0
	union := func(dst *[]string, src []string) {
		existing := make(map[string]bool, len(*dst))
		for _, s := range *dst {
			existing[strings.ToLower(s)] = true
		}
		for _, s := range src {
			if s == "" || existing[strings.ToLower(s)] {
				continue
			}
			existing[strings.ToLower(s)] = true
			*dst = append(*dst, s)
			added++
		}
	}

	union(&target.Behaviors.Greeting, pack.Behaviors.Greeting)
	union(&target.Behaviors.Thinking, pack.Behaviors.Thinking)
	union(&target.Behaviors.Excited, pack.Behaviors.Excited)
	union(&target.Behaviors.Confused, pack.Behaviors.Confused)
	union(&target.IntroPhrases, pack.IntroPhrases)
	union(&target.Lexicon, pack.Lexicon)
	union(&target.ForbiddenPhrases, pack.ForbiddenPhrases)
	union(&target.OverridePhrases, pack.OverridePhrases)

	keys := make(map[string]bool, len(target.Topics))
	for _, t := range target.Topics {
		keys[strings.ToLower(t.Key)] = true
	}
	for _, t := range pack.Topics {
		if t.Key == "" || keys[strings.ToLower(t.Key)] {
			continue
		}
		keys[strings.ToLower(t.Key)] = true
		target.Topics = append(target.Topics, t)
		added++
	}

	union(&target.Templates.Redirect, pack.Templates.Redirect)
	union(&target.Templates.Confused, pack.Templates.Confused)
	union(&target.Templates.PersonalityBreak, pack.Templates.PersonalityBreak)
	union(&target.Templates.Fallback, pack.Templates.Fallback)

	return added
}

func cloneConfig(c *Config) *Config {
	clone := *c
	cp := func(s []string) []string {
		out := make([]string, len(s))
		copy(out, s)
		return out
	}

	clone.Identity.Traits = cp(c.Identity.Traits)
	clone.Behaviors = Behaviors{
		Greeting: cp(c.Behaviors.Greeting),
		Thinking: cp(c.Behaviors.Thinking),
		Excited:  cp(c.Behaviors.Excited),
		Confused: cp(c.Behaviors.Confused),
	}
	clone.IntroPhrases = cp(c.IntroPhrases)
	clone.Required = RequiredElements{
		Symbols:       cp(c.Required.Symbols),
		Words:         cp(c.Required.Words),
		BehaviorWords: cp(c.Required.BehaviorWords),
	}
	clone.Lexicon = cp(c.Lexicon)
	clone.ForbiddenPhrases = cp(c.ForbiddenPhrases)
	clone.OverridePhrases = cp(c.OverridePhrases)
	clone.Topics = make([]Topic, len(c.Topics))
	copy(clone.Topics, c.Topics)
	clone.Templates = Templates{
		Redirect:         cp(c.Templates.Redirect),
		Confused:         cp(c.Templates.Confused),
		PersonalityBreak: cp(c.Templates.PersonalityBreak),
		Fallback:         cp(c.Templates.Fallback),
	}
	return &clone
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
