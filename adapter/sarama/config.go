package sarama

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"

	"github.com/vmyroslav/ordertrain/config"
)

// NewSaramaConfig builds the client configuration shared by producer, consumer and admin.
func NewSaramaConfig(cfg config.Kafka) (*sarama.Config, error) {
	c := sarama.NewConfig()

	v, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse Kafka version: %s", cfg.Version)
	}

	c.Version = v
	c.ClientID = cfg.ClientID

	// offsets are marked by commit handles only, never by the consume loop
	c.Consumer.Offsets.AutoCommit.Enable = true
	c.Consumer.Offsets.Initial = sarama.OffsetOldest
	c.Consumer.Return.Errors = true

	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Partitioner = sarama.NewHashPartitioner

	if cfg.Username != "" {
		c.Net.SASL.Enable = true
		c.Net.SASL.User = cfg.Username
		c.Net.SASL.Password = cfg.Password
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
	}

	if cfg.CACert != "" {
		c.Net.TLS.Enable = true

		rootCAs, err := x509.SystemCertPool()
		if err != nil {
			return nil, errors.New("could not create ca cert")
		}

		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}

		if ok := rootCAs.AppendCertsFromPEM([]byte(cfg.CACert)); !ok {
			return nil, errors.New("could not append ca cert")
		}

		c.Net.TLS.Config = &tls.Config{
			RootCAs:    rootCAs,
			MinVersion: tls.VersionTLS12,
		}
	}

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid sarama config")
	}

	return c, nil
}
