package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daikin2mqtt/fcu"
)

func NewBridges(devices map[string]string, templateConfig *fcu.Config) []*fcu.Bridge {
	var bridges []*fcu.Bridge
	for mac, name := range devices {
		config := *templateConfig
		config.DeviceName = name
		config.MAC = mac
		bridge, err := fcu.NewBridge(&config)
		if err != nil {
			log.Fatalf("Error creating bridge for %s: %s", mac, err)
		}
		bridges = append(bridges, bridge)
	}
	return bridges
}

func main() {

	ctrlC := make(chan os.Signal, 1)
	signal.Notify(ctrlC, os.Interrupt, syscall.SIGTERM)

	config := ParseCommandLine()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		var sessionID int
		var bridges []*fcu.Bridge
		for range ticker.C {
			newSessionID := config.MqttClient.ID
			if sessionID != newSessionID {
				bridges = NewBridges(config.devices, config.BridgeTemplateConfig)
				for _, b := range bridges {
					err := b.Start()
					if err != nil {
						log.Printf("Error starting bridge: %s\n", err)
						break
					} else {
						sessionID = newSessionID
					}
				}
			} else {
				for _, b := range bridges {
					b.Tick()
				}
			}
		}
	}()

	<-ctrlC

	config.MqttClient.Close()

}
