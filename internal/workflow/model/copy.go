package model

// TopicSpec 议题描述
type TopicSpec struct {
	Name     string
	Context  string
	Keywords []string
	Example  string
}

// ToneSpec 语气描述
type ToneSpec struct {
	Name        string
	Instruction string
}

type TitleGenerateInput struct {
	Persona string
	Topic   TopicSpec
	Tone    ToneSpec
	Tag     string

	// CoreText 用户贴上的原文；为空时以议题名称为核心
	CoreText string

	References        string
	ReferenceMaxRunes int

	Count int

	Options GenerateOptions
}

type PostGenerateInput struct {
	Persona string
	Title   string
	Tag     string
	Topic   TopicSpec
	Tone    ToneSpec
	Fillers []string

	References        string
	ReferenceMaxRunes int

	BodyRunes    int
	Sentinel     string
	CommentCount int

	Options GenerateOptions
}

type OpinionSummaryInput struct {
	Comments string
	MaxRunes int

	Options GenerateOptions
}

type OpinionAnalysisInput struct {
	Summary  string
	MinRunes int
	MaxRunes int

	Options GenerateOptions
}
