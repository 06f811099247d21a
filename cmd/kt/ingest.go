package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/klartext/klartext/internal/decompose"
	"github.com/klartext/klartext/internal/run"
	"github.com/klartext/klartext/internal/store"
)

// objectFile is the JSON description of one content object, as exported
// by the CMS side.
type objectFile struct {
	ObjectID       uint   `json:"object_id"`
	ObjectType     string `json:"object_type"`
	BlogID         uint   `json:"blog_id"`
	SourceLanguage string `json:"source_language"`
	Fields         []struct {
		Identifier string `json:"identifier"`
		Raw        string `json:"raw"`
		HTML       bool   `json:"html"`
		Builder    string `json:"builder"`
	} `json:"fields"`
}

func loadObjectFile(path string) (*objectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read object file: %w", err)
	}
	var obj objectFile
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("parse object file %s: %w", path, err)
	}
	if obj.ObjectID == 0 || obj.ObjectType == "" {
		return nil, fmt.Errorf("object file %s: object_id and object_type are required", path)
	}
	return &obj, nil
}

func (o *objectFile) ref() store.ObjectRef {
	return store.ObjectRef{ObjectID: o.ObjectID, ObjectType: o.ObjectType, BlogID: o.BlogID}
}

func (o *objectFile) content() decompose.Object {
	obj := decompose.Object{}
	for _, f := range o.Fields {
		obj.Fields = append(obj.Fields, decompose.Field{
			Identifier: f.Identifier,
			Raw:        f.Raw,
			HTML:       f.HTML,
			Builder:    f.Builder,
		})
	}
	return obj
}

func newIngestCmd() *cobra.Command {
	var configPath, filePath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Decompose an object file into stored fragments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, configPath, filePath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the object JSON file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runIngest(cmd *cobra.Command, configPath, filePath string) error {
	obj, err := loadObjectFile(filePath)
	if err != nil {
		return err
	}
	eng, err := buildEngine(configPath)
	if err != nil {
		return err
	}
	sourceLanguage := obj.SourceLanguage
	if sourceLanguage == "" {
		sourceLanguage = eng.cfg.Languages.Source
	}

	fragments, err := eng.orch.Ingest(eng.decomposer, run.IngestOpts{
		Object:         obj.ref(),
		SourceLanguage: sourceLanguage,
		Content:        obj.content(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s %d: %d fragments\n", obj.ObjectType, obj.ObjectID, len(fragments))
	return nil
}

func newComposeCmd() *cobra.Command {
	var configPath, filePath, targetLanguage string

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Print an object file with simplified text substituted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd, configPath, filePath, targetLanguage)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the object JSON file")
	cmd.Flags().StringVarP(&targetLanguage, "lang", "l", "", "target language")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("lang")
	return cmd
}

func runCompose(cmd *cobra.Command, configPath, filePath, targetLanguage string) error {
	obj, err := loadObjectFile(filePath)
	if err != nil {
		return err
	}
	eng, err := buildEngine(configPath)
	if err != nil {
		return err
	}
	sourceLanguage := obj.SourceLanguage
	if sourceLanguage == "" {
		sourceLanguage = eng.cfg.Languages.Source
	}

	composed, err := eng.orch.Compose(eng.decomposer, obj.content(), sourceLanguage, targetLanguage)
	if err != nil {
		return err
	}

	out := struct {
		ObjectID       uint             `json:"object_id"`
		ObjectType     string           `json:"object_type"`
		BlogID         uint             `json:"blog_id"`
		TargetLanguage string           `json:"target_language"`
		Fields         []decompose.Field `json:"fields"`
	}{obj.ObjectID, obj.ObjectType, obj.BlogID, targetLanguage, composed.Fields}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
