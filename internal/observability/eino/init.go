// Package eino 将模型调用接入指标与追踪
package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var registerOnce sync.Once

// Init 注册全局 ChatModel 回调，重复调用无副作用
func Init() {
	registerOnce.Do(func() {
		einocallbacks.AppendGlobalHandlers(
			cbtemplate.NewHandlerHelper().ChatModel(newChatModelCallbackHandler()).Handler(),
		)
	})
}
