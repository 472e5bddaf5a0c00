package telemetry

import "time"

// PublisherBuilderOption is a functional option for configuring a Publisher.
type PublisherBuilderOption func(*publisher)

// WithBroker sets the broker URL, e.g. tcp://localhost:1883.
//
// Parameters:
//   - url: the broker URL
//
// Returns:
//   - PublisherBuilderOption: option function to apply
func WithBroker(url string) PublisherBuilderOption {
	return func(p *publisher) {
		p.broker = url
	}
}

// WithTopic sets the topic prefix. Messages go to <topic>/state and <topic>/frame.
//
// Parameters:
//   - topic: the topic prefix
//
// Returns:
//   - PublisherBuilderOption: option function to apply
func WithTopic(topic string) PublisherBuilderOption {
	return func(p *publisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

// WithClientID sets the MQTT client identifier.
//
// Parameters:
//   - id: the client id
//
// Returns:
//   - PublisherBuilderOption: option function to apply
func WithClientID(id string) PublisherBuilderOption {
	return func(p *publisher) {
		if id != "" {
			p.clientID = id
		}
	}
}

// WithCredentials sets the broker username and password.
//
// Parameters:
//   - username: the user name
//   - password: the password
//
// Returns:
//   - PublisherBuilderOption: option function to apply
func WithCredentials(username, password string) PublisherBuilderOption {
	return func(p *publisher) {
		p.username = username
		p.password = password
	}
}

// WithTimeout sets how long connect and publish wait for the broker. Defaults to 5s.
//
// Parameters:
//   - d: the timeout
//
// Returns:
//   - PublisherBuilderOption: option function to apply
func WithTimeout(d time.Duration) PublisherBuilderOption {
	return func(p *publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithQueueSize sets how many messages may wait for the broker before new ones are dropped. Defaults to 64.
//
// Parameters:
//   - size: the queue capacity, values < 1 keep the default
//
// Returns:
//   - PublisherBuilderOption: option function to apply
func WithQueueSize(size int) PublisherBuilderOption {
	return func(p *publisher) {
		if size > 0 {
			p.queueSize = size
		}
	}
}

func withPublishFunc(fn publishFunc) PublisherBuilderOption {
	return func(p *publisher) {
		p.publish = fn
	}
}

func withClock(now func() time.Time) PublisherBuilderOption {
	return func(p *publisher) {
		p.now = now
	}
}
