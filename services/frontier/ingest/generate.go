// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Density selects how many relationships Generate emits per entity.
type Density string

const (
	DensitySparse Density = "sparse" // 2 per entity
	DensityMedium Density = "medium" // 6 per entity
	DensityDense  Density = "dense"  // 15 per entity
)

// Densities lists every density in increasing order.
var Densities = []Density{DensitySparse, DensityMedium, DensityDense}

// ParseDensity accepts "sparse", "medium" or "dense", case-insensitively.
func ParseDensity(s string) (Density, error) {
	d := Density(strings.ToLower(strings.TrimSpace(s)))
	if d.multiplier() == 0 {
		return "", fmt.Errorf("unknown density %q", s)
	}
	return d, nil
}

func (d Density) multiplier() int {
	switch d {
	case DensitySparse:
		return 2
	case DensityMedium:
		return 6
	case DensityDense:
		return 15
	default:
		return 0
	}
}

// GenerateOptions configures Generate.
type GenerateOptions struct {
	// Size is the number of entities. Must be >= 2.
	Size int

	// Density sets relationships per entity.
	Density Density

	// Seed makes the output reproducible.
	Seed uint64
}

type entityTemplate struct {
	kind   string
	weight int
	bases  []string
}

var entityTemplates = []entityTemplate{
	{"project", 3, []string{"nexus-platform", "quantum-db", "react-dashboard", "ml-pipeline", "api-service"}},
	{"component", 5, []string{"user-service", "auth-module", "data-processor", "web-client", "cache-layer", "message-queue"}},
	{"file", 4, []string{"config.yml", "README.md", "package.json", "Dockerfile", "schema.sql", "main.py", "index.tsx"}},
	{"tool", 3, []string{"CodeAssistant", "TestRunner", "DeployBot", "BuildTool", "Debugger", "Profiler"}},
	{"concept", 2, []string{"microservices", "event-sourcing", "CQRS", "containerization", "CI/CD", "observability"}},
	{"service", 3, []string{"database", "load-balancer", "monitoring", "logging", "metrics", "tracing"}},
	{"agent", 2, []string{"frontend-engineer", "backend-engineer", "devops-specialist", "qa-engineer", "data-scientist"}},
}

var (
	languages = []string{"Python", "TypeScript", "Go", "Rust", "Java", "C++", "JavaScript", "Scala", "Kotlin"}

	generatedRelationTypes = []string{
		"contains", "modifies", "implements", "uses", "depends_on",
		"calls", "extends", "configures", "deploys", "monitors",
		"analyzes", "references", "includes", "creates",
	}

	connectivityRelationTypes = []string{
		"depends_on", "implements", "calls", "inherits_from", "uses",
		"contains", "references", "extends", "imports", "configures",
	}
)

// Generate builds a synthetic software knowledge graph.
//
// Description:
//
//	Entities are drawn from weighted type templates and given unique
//	names. Size*multiplier relationships follow, each between two
//	distinct uniformly chosen entities with confidence in [0.7, 1.0]
//	rounded to two decimals. Duplicate pairs are allowed.
//
// Outputs:
//
//	*Document - Deterministic for a given Size, Density and Seed, except ID.
//	error - Size below 2 or unknown density.
func Generate(opts GenerateOptions) (*Document, error) {
	if opts.Size < 2 {
		return nil, fmt.Errorf("generate: size %d below 2", opts.Size)
	}
	mult := opts.Density.multiplier()
	if mult == 0 {
		return nil, fmt.Errorf("generate: unknown density %q", opts.Density)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, uint64(opts.Size)))

	totalWeight := 0
	for _, t := range entityTemplates {
		totalWeight += t.weight
	}

	entities := make([]Entity, opts.Size)
	for i := range entities {
		tmpl := pickTemplate(rng.IntN(totalWeight))
		name := fmt.Sprintf("%s-%d", tmpl.bases[rng.IntN(len(tmpl.bases))], i)

		e := Entity{
			Name:        name,
			Type:        tmpl.kind,
			Description: fmt.Sprintf("Generated %s for synthetic benchmarking", tmpl.kind),
		}
		switch tmpl.kind {
		case "component", "file":
			e.FilePath = "/src/" + tmpl.kind + "s/" + strings.ReplaceAll(name, "-", "_")
			e.Language = languages[rng.IntN(len(languages))]
		case "tool":
			e.Language = languages[rng.IntN(len(languages))]
		}
		entities[i] = e
	}

	target := opts.Size * mult
	rels := make([]Relationship, 0, target)
	for len(rels) < target {
		src := rng.IntN(opts.Size)
		dst := rng.IntN(opts.Size - 1)
		if dst >= src {
			dst++
		}
		rels = append(rels, Relationship{
			Source:     entities[src].Name,
			Target:     entities[dst].Name,
			Type:       generatedRelationTypes[rng.IntN(len(generatedRelationTypes))],
			Confidence: roundConfidence(0.7 + 0.3*rng.Float64()),
			Context:    fmt.Sprintf("Synthetic relationship between %s and %s", entities[src].Type, entities[dst].Type),
		})
	}

	return &Document{
		ID:            uuid.NewString(),
		Entities:      entities,
		Relationships: rels,
		Metadata: map[string]any{
			"generation_method":    "pattern_expansion",
			"target_size":          opts.Size,
			"density_level":        string(opts.Density),
			"actual_entities":      len(entities),
			"actual_relationships": len(rels),
			"actual_avg_degree":    float64(2*len(rels)) / float64(len(entities)),
			"synthetic":            true,
		},
	}, nil
}

func pickTemplate(r int) entityTemplate {
	for _, t := range entityTemplates {
		if r < t.weight {
			return t
		}
		r -= t.weight
	}
	return entityTemplates[len(entityTemplates)-1]
}

// roundConfidence rounds to two decimals and never returns zero, which
// would read as "unspecified".
func roundConfidence(c float64) float64 {
	return math.Max(0.01, math.Round(c*100)/100)
}

// Connectivity returns relationships / (n*(n-1)) for a directed document.
func Connectivity(doc *Document) float64 {
	n := len(doc.Entities)
	if n < 2 {
		return 0
	}
	return float64(len(doc.Relationships)) / float64(n*(n-1))
}

// EnhanceConnectivity appends relationships until Connectivity(doc)
// reaches target.
//
// New relationships join distinct entities, never duplicate an existing
// (source, target) pair and carry confidence in [0.6, 0.9]. At most ten
// draws per missing relationship are made, so very high targets on small
// graphs may stop short.
//
// Outputs:
//
//	int - Relationships added.
func EnhanceConnectivity(doc *Document, target float64, rng *rand.Rand) int {
	n := len(doc.Entities)
	if n < 2 || target <= 0 {
		return 0
	}
	want := int(float64(n*(n-1)) * target)
	missing := want - len(doc.Relationships)
	if missing <= 0 {
		return 0
	}

	type pair struct{ src, dst string }
	existing := make(map[pair]struct{}, len(doc.Relationships)+missing)
	for _, r := range doc.Relationships {
		existing[pair{r.Source, r.Target}] = struct{}{}
	}

	added := 0
	for attempt := 0; attempt < missing*10 && added < missing; attempt++ {
		src := doc.Entities[rng.IntN(n)]
		dst := doc.Entities[rng.IntN(n)]
		if src.Name == dst.Name {
			continue
		}
		key := pair{src.Name, dst.Name}
		if _, dup := existing[key]; dup {
			continue
		}
		existing[key] = struct{}{}
		doc.Relationships = append(doc.Relationships, Relationship{
			Source:     src.Name,
			Target:     dst.Name,
			Type:       connectivityRelationTypes[rng.IntN(len(connectivityRelationTypes))],
			Confidence: roundConfidence(0.6 + 0.3*rng.Float64()),
		})
		added++
	}
	return added
}
