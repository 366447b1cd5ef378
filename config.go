package main

import (
	"flag"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"daikin2mqtt/fcu"
	"daikin2mqtt/mqtt"
)

type Config struct {
	MqttClient           *mqtt.Client
	devices              map[string]string // MAC -> device name
	BridgeTemplateConfig *fcu.Config
}

func generateDeviceName(mac string) string {
	reg, err := regexp.Compile("[^a-zA-Z0-9]+")
	if err != nil {
		log.Fatal(err)
	}
	return strings.ToLower("fcu_" + reg.ReplaceAllString(mac, ""))
}

func parseDeviceInfo(macs, names string) map[string]string {
	macList := strings.Split(macs, ",")
	var nameList []string

	if names == "" {
		for _, mac := range macList {
			nameList = append(nameList, generateDeviceName(mac))
		}
	} else {
		nameList = strings.Split(names, ",")
		if len(macList) != len(nameList) {
			log.Fatalf("macs and names lists must have the same length")
		}
	}

	devices := make(map[string]string)
	for i, mac := range macList {
		if _, err := fcu.ParseMAC(mac); err != nil {
			log.Fatalf("Error parsing device MAC %q", mac)
		}
		devices[mac] = nameList[i]
	}
	return devices
}

func ParseCommandLine() *Config {
	hostname, _ := os.Hostname()

	server := flag.String("server", "tcp://127.0.0.1:1883", "The full url of the MQTT server to connect to ex: tcp://127.0.0.1:1883")
	clientid := flag.String("clientid", hostname+strconv.Itoa(time.Now().Second()), "A clientid for the connection")
	username := flag.String("username", "", "A username to authenticate to the MQTT server")
	password := flag.String("password", "", "Password to match username")
	prefix := flag.String("prefix", "daikin2mqtt", "MQTT topic root where to publish/read state topics")
	hassPrefix := flag.String("hassPrefix", "homeassistant", "Home assistant discovery prefix")
	location := flag.String("location", "", "Site segment of the FCU protocol topics, ex: trainingcenter")
	protoPrefix := flag.String("protoPrefix", "daikiniot", "Protocol segment of the FCU topics")
	appName := flag.String("appName", hostname+"-daikin2mqtt", "Application identity used in the query/response topics")
	macs := flag.String("macs", "", "Comma-separated list of FCU MAC addresses to manage")
	names := flag.String("names", "", "Comma-separated list of device names. Defaults to 'fcu_<mac>'")
	pendingTimeout := flag.Duration("pendingTimeout", 10*time.Second, "How long to wait for the FCU to confirm a command")

	flag.Parse()

	if *location == "" {
		log.Fatalf("location is required")
	}
	if *macs == "" {
		log.Fatalf("At least one FCU MAC is required")
	}

	devices := parseDeviceInfo(*macs, *names)

	mqttClient := mqtt.New(&mqtt.Config{
		Server:   *server,
		ClientID: *clientid,
		Username: *username,
		Password: *password,
	})

	return &Config{
		devices:    devices,
		MqttClient: mqttClient,
		BridgeTemplateConfig: &fcu.Config{
			Mqtt:           mqttClient,
			Location:       *location,
			ProtocolPrefix: *protoPrefix,
			AppName:        *appName,
			TopicPrefix:    *prefix,
			HassPrefix:     *hassPrefix,
			PendingTimeout: *pendingTimeout,
		},
	}
}
