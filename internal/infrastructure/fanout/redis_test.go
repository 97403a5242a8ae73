package fanout

import "github.com/redis/go-redis/v9"

func redisMessage(data string) redis.XMessage {
	values := map[string]any{}
	if data != "" {
		values["data"] = data
	}
	return redis.XMessage{ID: "1-0", Values: values}
}
