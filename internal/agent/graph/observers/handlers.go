package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks observes every model and prompt run inside a turn.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

// NewModelCallbacks is installed by the generator around each backend call.
func NewModelCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().ChatModel(newModelHandler()).Handler()
}

// NewPromptCallbacks is installed while persona, NLU and bill templates render.
func NewPromptCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().Prompt(newPromptHandler()).Handler()
}
