package ws

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"lab_booking/internal/notify"
)

// RelayFromRedis forwards intents published by any instance to the local
// hub. It returns when ctx is done.
func RelayFromRedis(ctx context.Context, client *redis.Client, hub *Hub) error {
	sub := client.Subscribe(ctx, notify.RedisChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.Info().Str("channel", notify.RedisChannel).Msg("websocket relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var in notify.Intent
			if err := json.Unmarshal([]byte(msg.Payload), &in); err != nil {
				log.Warn().Err(err).Msg("skipping malformed intent from redis")
				continue
			}
			if err := hub.Deliver(ctx, in); err != nil {
				return nil
			}
		}
	}
}
