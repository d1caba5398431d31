// Package telegram is the chat side of RonGame.
//
// The bot answers /start and /game with a button that opens the web view
// ("/game puzzle" opens the 15-puzzle), /help with the rules, and echoes
// results the web view sends back through sendData. As a
// service.ResultReporter it posts the share text of a won game to the
// session's chat.
package telegram
