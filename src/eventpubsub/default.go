package eventpubsub

import (
	log "github.com/sirupsen/logrus"

	"github.com/asaskevich/EventBus"
)

var bus EventBus.Bus

func Init() {
	bus = EventBus.New()
}

func Publish(publisherName string, topic string, event interface{}) {
	log.Debugf("[%v] Published to topic %s", publisherName, topic)

	bus.Publish(topic, event)
}

func Subscribe(subscriberName string, topic string, callbackFn interface{}) error {
	if err := bus.SubscribeAsync(topic, callbackFn, false); err != nil {
		log.Errorf("[%v] error: %v", subscriberName, err)
		return err
	}

	log.Infof("[%v] Subscribed to topic %s", subscriberName, topic)
	return nil
}

func Unsubscribe(subscriberName string, topic string, callbackFn interface{}) {
	if err := bus.Unsubscribe(topic, callbackFn); err != nil {
		log.Errorf("[%v] error: %v", subscriberName, err)
	}
}
