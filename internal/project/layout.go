// Package project derives the on-disk layout of a pipeline project.
package project

import "path/filepath"

// Layout holds every well-known path under a project directory. All pipeline
// stages read and write through these paths so that each stage can be re-run
// independently from what the previous stage left on disk.
type Layout struct {
	// Root is <work_dir>/<project>, or just <work_dir> when the project
	// name is empty.
	Root string

	ReferenceDir   string // reference artifacts
	AnalyzerDir    string // raw synopsis-analysis output
	ImagesDir      string // entity reference images
	EntityListPath string // the entity registry, one record per line

	StoryDir  string
	ScenePath string // one scene JSON object per line
	CutPath   string // one JSON array of cuts per line, one line per scene

	VideoDir     string
	CutImageDir  string // S####-C####.png
	ClipDir      string // S####-C####_video.mp4
	ClipListPath string // ffmpeg concat manifest
	FinalPath    string // concatenated output
}

// NewLayout derives the standard layout from a (workDir, project) pair.
func NewLayout(workDir, project string) Layout {
	root := workDir
	if project != "" {
		root = filepath.Join(workDir, project)
	}

	finalName := "final_concat_video.mp4"
	if project != "" {
		finalName = project + "_concat_video.mp4"
	}

	referenceDir := filepath.Join(root, "reference")
	storyDir := filepath.Join(root, "story")
	videoDir := filepath.Join(root, "video")

	return Layout{
		Root:           root,
		ReferenceDir:   referenceDir,
		AnalyzerDir:    filepath.Join(referenceDir, "analyzer"),
		ImagesDir:      filepath.Join(referenceDir, "images"),
		EntityListPath: filepath.Join(referenceDir, "entity_list.txt"),
		StoryDir:       storyDir,
		ScenePath:      filepath.Join(storyDir, "scene.txt"),
		CutPath:        filepath.Join(storyDir, "cut.txt"),
		VideoDir:       videoDir,
		CutImageDir:    filepath.Join(videoDir, "cut-images"),
		ClipDir:        filepath.Join(videoDir, "output"),
		ClipListPath:   filepath.Join(videoDir, "clip_file_list.txt"),
		FinalPath:      filepath.Join(videoDir, finalName),
	}
}
