package entity

// 参考资料来源
const (
	ReferenceSourceFolder = "folder"
	ReferenceSourceUpload = "upload"
)

// 参考资料类型
const (
	ReferenceKindText  = "text"
	ReferenceKindSheet = "sheet"
)

// ReferenceDoc 折入 prompt 的参考资料
type ReferenceDoc struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Kind      string `json:"kind"`
	Content   string `json:"-"`
	Runes     int    `json:"runes"`
	Truncated bool   `json:"truncated"`
}

// Label 返回 prompt 中使用的资料标题
func (d ReferenceDoc) Label() string {
	switch {
	case d.Source == ReferenceSourceUpload && d.Kind == ReferenceKindSheet:
		return "[上傳 Excel: " + d.Name + "]"
	case d.Source == ReferenceSourceUpload:
		return "[上傳檔案: " + d.Name + "]"
	case d.Kind == ReferenceKindSheet:
		return "[資料夾 Excel: " + d.Name + "]"
	default:
		return "[資料夾檔案: " + d.Name + "]"
	}
}

// SkippedReference 读取失败被跳过的文件
type SkippedReference struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}
