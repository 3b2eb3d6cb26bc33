package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sqlez/internal/events"
)

func newEventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow store lifecycle events",
	}
	cmd.AddCommand(newEventsWatchCmd(a))
	return cmd
}

func newEventsWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print lifecycle events published over MQTT until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.MQTT.Enabled {
				return errors.New("mqtt is disabled in configuration")
			}
			if a.mqtt == nil {
				return errors.New("mqtt broker unavailable")
			}

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			handler := func(topic string, payload []byte) error {
				ev, err := events.Decode(payload)
				if err != nil {
					return fmt.Errorf("message on %s: %w", topic, err)
				}
				mu.Lock()
				defer mu.Unlock()
				_, _ = fmt.Fprintln(out, ev.String())
				return nil
			}

			topic := a.mqtt.Topics().AllEvents()
			// #nosec G115 -- qos validated by config to be 0-2
			if err := a.mqtt.Subscribe(topic, byte(a.cfg.MQTT.QoS), handler); err != nil {
				return err
			}
			a.log.Info("watching events", "topic", topic)

			<-cmd.Context().Done()
			return nil
		},
	}
}
