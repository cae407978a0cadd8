package slackbot

import (
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// mapFunc normalizes a callback inner event into a relay Request. The
// second return is false when the event must be dropped before any side
// effect happens.
type mapFunc func(data interface{}) (Request, bool)

// relayDispatch is the table both transports consult, keyed by the inner
// event type string. Built once at construction; unknown types are ignored
// by the caller.
func relayDispatch() map[string]mapFunc {
	return map[string]mapFunc{
		string(slackevents.AppMention): mapAppMention,
		string(slackevents.Message):    mapChannelMessage,
	}
}

// mapAppMention drops mentions authored by bots so the relay never answers
// itself or another bot.
func mapAppMention(data interface{}) (Request, bool) {
	ev, ok := data.(*slackevents.AppMentionEvent)
	if !ok || ev.BotID != "" {
		return Request{}, false
	}
	return Request{
		Channel:  ev.Channel,
		Text:     ev.Text,
		EventTS:  ev.TimeStamp,
		ThreadTS: ev.ThreadTimeStamp,
	}, true
}

// mapChannelMessage drops bot messages and non-user subtypes (edits,
// deletions, channel joins) before they can trigger a write.
func mapChannelMessage(data interface{}) (Request, bool) {
	ev, ok := data.(*slackevents.MessageEvent)
	if !ok || ev.BotID != "" {
		return Request{}, false
	}
	if ev.SubType != "" && ev.SubType != slack.MsgSubTypeFileShare {
		return Request{}, false
	}
	return Request{
		Channel:  ev.Channel,
		Text:     ev.Text,
		EventTS:  ev.TimeStamp,
		ThreadTS: ev.ThreadTimeStamp,
	}, true
}
