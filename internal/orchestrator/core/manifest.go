package core

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ManifestKey is the well-known object name workers look for under the
// job prefix in the input bucket.
const ManifestKey = "job.manifest"

//go:embed manifest_schema.json
var manifestSchemaJSON []byte

var manifestSchema = mustCompileManifestSchema()

func mustCompileManifestSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest_schema.json", bytes.NewReader(manifestSchemaJSON)); err != nil {
		panic(fmt.Sprintf("add manifest schema: %v", err))
	}
	return compiler.MustCompile("manifest_schema.json")
}

// Manifest is the durable, immutable job descriptor uploaded alongside
// the asset and parsed by remote workers, possibly written in other
// languages. Field names are part of the wire contract.
type Manifest struct {
	JobID         string   `json:"job_id"`
	StartFrame    int      `json:"start_frame"`
	EndFrame      int      `json:"end_frame"`
	Chunks        [][2]int `json:"chunks"`
	InstanceCount int      `json:"instance_count"`
	InstanceType  string   `json:"instance_type"`
	Key           string   `json:"key"`
	Format        string   `json:"format"`
}

// BuildManifest assembles the manifest from job parameters and the
// pre-computed chunk list. Pure construction: it fails only on invalid
// inputs and has no side effects.
func BuildManifest(jobID string, frameStart, frameEnd int, chunks []Chunk, instanceCount int, instanceType InstanceType, assetKey string, format OutputFormat) (*Manifest, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id is empty")
	}
	if err := validateJobParams(frameStart, frameEnd, instanceCount, instanceType, assetKey, format); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunk list is empty")
	}

	pairs := make([][2]int, 0, len(chunks))
	for _, c := range chunks {
		pairs = append(pairs, [2]int{c.Start, c.End})
	}

	return &Manifest{
		JobID:         jobID,
		StartFrame:    frameStart,
		EndFrame:      frameEnd,
		Chunks:        pairs,
		InstanceCount: instanceCount,
		InstanceType:  string(instanceType),
		Key:           assetKey,
		Format:        string(format),
	}, nil
}

// Encode serializes the manifest as indented JSON.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// ChunkList converts the wire pairs back into Chunk values.
func (m *Manifest) ChunkList() []Chunk {
	chunks := make([]Chunk, 0, len(m.Chunks))
	for _, pair := range m.Chunks {
		chunks = append(chunks, Chunk{Start: pair[0], End: pair[1]})
	}
	return chunks
}

// DecodeManifest parses and validates manifest JSON. The payload is
// checked against the manifest schema before unmarshalling, since it may
// come from a foreign producer.
func DecodeManifest(data []byte) (*Manifest, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := manifestSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("manifest does not match schema: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if strings.TrimSpace(m.JobID) == "" {
		return nil, fmt.Errorf("manifest job_id is empty")
	}
	return &m, nil
}
