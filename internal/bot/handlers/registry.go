package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler together with its
// registration pattern and middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands initializes and returns a map of all bot commands.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/help"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	handlers["/reasoning"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "reasoning",
		Handler:     NewReasoningHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}

	handlers["/preset"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "preset",
		Handler:     NewPresetHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}
	handlers["/prompt"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "prompt",
		Handler:     NewPromptHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}
	handlers["/reset"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "reset",
		Handler:     NewResetHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}
	handlers["/trigger"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "trigger",
		Handler:     NewTriggerHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}

	return handlers
}
