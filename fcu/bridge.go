package fcu

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	average "github.com/RobinUS2/golang-moving-average"

	"daikin2mqtt/frame"
	"daikin2mqtt/watcher"
)

// MqttClient is the transport surface the bridge needs. The real client
// lives in the mqtt package; tests supply a mock.
type MqttClient interface {
	Publish(topic string, qos byte, retained bool, payload string) error
	Subscribe(topic string, callback func(message string)) error
}

type Config struct {
	DeviceName     string
	MAC            string // e.g. "600194657C39", colons and dashes accepted
	Location       string
	ProtocolPrefix string
	AppName        string
	TopicPrefix    string
	HassPrefix     string
	PendingTimeout time.Duration
	Mqtt           MqttClient
}

// Bridge wires one FCU to MQTT: it feeds inbound broadcast/response frames
// through the mapper into the controller, publishes decoded state for Home
// Assistant and turns HA commands into query-topic frames.
type Bridge struct {
	Config
	macText    string // normalized uppercase hex, as used in topics
	mapper     *Mapper
	controller *Controller
	regs       *watcher.Watcher
	temp       *average.MovingAverage
	lastTemp   float64
}

func NewBridge(config *Config) (*Bridge, error) {
	mac, err := ParseMAC(config.MAC)
	if err != nil {
		return nil, err
	}
	mapper := NewMapper(mac)
	b := &Bridge{
		Config:  *config,
		macText: strings.ToUpper(hex.EncodeToString(mac[:])),
		mapper:  mapper,
		controller: NewController(&ControllerConfig{
			Mapper:         mapper,
			PendingTimeout: config.PendingTimeout,
		}),
		regs: watcher.New(&watcher.Config{
			Start:    FIRST_REGISTER,
			Quantity: TOTAL_REGISTERS,
		}),
		temp: average.New(20),
	}
	return b, nil
}

// Controller exposes the device state machine to the hosting layer.
func (b *Bridge) Controller() *Controller {
	return b.controller
}

func (b *Bridge) Start() error {
	modeTopic := b.getStateTopic("mode")
	targetTempTopic := b.getStateTopic("targetTemp")
	currentTempTopic := b.getStateTopic("currentTemp")
	fanModeTopic := b.getStateTopic("fanMode")
	swingModeTopic := b.getStateTopic("swingMode")

	publishMode := func(reg int) {
		state, _ := b.controller.State()
		b.publish(modeTopic, state.HvacMode())
	}
	b.regs.RegisterCallback(REG_POWER, publishMode)
	b.regs.RegisterCallback(REG_MODE, publishMode)
	b.regs.RegisterCallback(REG_FAN_SPEED, func(reg int) {
		state, _ := b.controller.State()
		if state.FanSpeed != nil {
			b.publish(fanModeTopic, FanSpeed2Str(*state.FanSpeed))
		}
	})
	b.regs.RegisterCallback(REG_SWING, func(reg int) {
		state, _ := b.controller.State()
		if state.Swing != nil {
			b.publish(swingModeTopic, SwingMode2Str(*state.Swing))
		}
	})
	b.regs.RegisterCallback(REG_TARGET_TEMP, func(reg int) {
		state, _ := b.controller.State()
		if state.TargetTemp != nil {
			b.publish(targetTempTopic, fmt.Sprintf("%g", *state.TargetTemp))
		}
	})

	err := b.Mqtt.Subscribe(b.getBroadcastTopic(), func(message string) {
		b.handleFrame(KindBroadcast, message, currentTempTopic)
	})
	if err != nil {
		return err
	}
	err = b.Mqtt.Subscribe(b.getResponseTopic(), func(message string) {
		b.handleFrame(KindResponse, message, currentTempTopic)
	})
	if err != nil {
		return err
	}

	err = b.Mqtt.Subscribe(modeTopic+"/set", func(message string) {
		delta := &State{}
		if message == HVAC_MODE_OFF {
			delta.Power = boolPtr(false)
		} else {
			mode, ok := Modes.Get(message)
			if !ok {
				log.Printf("[%s] Unsupported hvac mode %q\n", b.DeviceName, message)
				return
			}
			delta.Power = boolPtr(true)
			delta.Mode = modePtr(mode.(Mode))
		}
		b.requestChange(delta)
	})
	if err != nil {
		return err
	}
	err = b.Mqtt.Subscribe(targetTempTopic+"/set", func(message string) {
		targetTemp, err := strconv.ParseFloat(message, 64)
		if err != nil {
			log.Printf("[%s] Error parsing target temperature %q: %s\n", b.DeviceName, message, err)
			return
		}
		b.requestChange(&State{TargetTemp: tempPtr(targetTemp)})
	})
	if err != nil {
		return err
	}
	err = b.Mqtt.Subscribe(fanModeTopic+"/set", func(message string) {
		speed, ok := FanSpeeds.Get(message)
		if !ok {
			log.Printf("[%s] Unsupported fan mode %q\n", b.DeviceName, message)
			return
		}
		b.requestChange(&State{FanSpeed: fanPtr(speed.(FanSpeed))})
	})
	if err != nil {
		return err
	}
	err = b.Mqtt.Subscribe(swingModeTopic+"/set", func(message string) {
		swing, ok := SwingModes.Get(message)
		if !ok {
			log.Printf("[%s] Unsupported swing mode %q\n", b.DeviceName, message)
			return
		}
		b.requestChange(&State{Swing: swingPtr(swing.(SwingMode))})
	})
	if err != nil {
		return err
	}

	return b.publishDiscoveryConfig(modeTopic, targetTempTopic, currentTempTopic, fanModeTopic, swingModeTopic)
}

// Tick drives the controller's pending-timeout window. Called periodically
// by the hosting loop.
func (b *Bridge) Tick() {
	b.controller.Tick()
}

func (b *Bridge) handleFrame(kind FrameKind, text string, currentTempTopic string) {
	f, err := frame.Decode(text)
	if err != nil {
		// corrupted or foreign traffic, the next broadcast will catch us up
		log.Printf("[%s] Dropping %s frame: %s\n", b.DeviceName, kindName(kind), err)
		return
	}
	report, err := b.mapper.Parse(f.Payload, kind)
	if err != nil {
		if err != ErrAddressMismatch { // other devices share the channel
			log.Printf("[%s] Dropping %s frame: %s\n", b.DeviceName, kindName(kind), err)
		}
		return
	}
	if !b.controller.Apply(report) {
		return
	}
	if err := b.regs.Apply(report.Window.Start, report.Window.Data); err != nil {
		log.Printf("[%s] Register window rejected: %s\n", b.DeviceName, err)
	}
	if report.State.RoomTemp != nil {
		b.sampleTemperature(*report.State.RoomTemp, currentTempTopic)
	}
}

// sampleTemperature smooths the measured room temperature and publishes
// the rounded average whenever it moves.
func (b *Bridge) sampleTemperature(sample float64, topic string) {
	b.temp.Add(sample)
	t := math.Round(b.temp.Avg()*10) / 10
	if t != b.lastTemp {
		b.lastTemp = t
		b.publish(topic, fmt.Sprintf("%g", t))
	}
}

func (b *Bridge) requestChange(delta *State) {
	text, err := b.controller.RequestChange(delta)
	if err != nil {
		log.Printf("[%s] Request rejected: %s\n", b.DeviceName, err)
		return
	}
	err = b.Mqtt.Publish(b.getQueryTopic(), 0, false, text)
	if err != nil {
		log.Printf("[%s] Error publishing command: %s\n", b.DeviceName, err)
	}
}

func (b *Bridge) publishDiscoveryConfig(modeTopic, targetTempTopic, currentTempTopic, fanModeTopic, swingModeTopic string) error {
	config := map[string]interface{}{
		"name":                      b.DeviceName,
		"unique_id":                 b.macText,
		"current_temperature_topic": currentTempTopic,
		"precision":                 0.1,
		"temperature_state_topic":   targetTempTopic,
		"temperature_command_topic": targetTempTopic + "/set",
		"temperature_unit":          "C",
		"temp_step":                 1.0,
		"min_temp":                  MIN_TARGET_TEMP,
		"max_temp":                  MAX_TARGET_TEMP,
		"modes":                     []string{HVAC_MODE_OFF, HVAC_MODE_COOL, HVAC_MODE_FAN_ONLY, HVAC_MODE_DRY},
		"mode_state_topic":          modeTopic,
		"mode_command_topic":        modeTopic + "/set",
		"fan_modes":                 []string{"3", "4", "5", "6", "7", "AUTO"},
		"fan_mode_state_topic":      fanModeTopic,
		"fan_mode_command_topic":    fanModeTopic + "/set",
		"swing_modes":               []string{"OFF", "1", "2", "3", "4", "5", "AUTO"},
		"swing_mode_state_topic":    swingModeTopic,
		"swing_mode_command_topic":  swingModeTopic + "/set",
	}
	configJSON, _ := json.Marshal(config)
	// <discovery_prefix>/<component>/<object_id>/config
	return b.Mqtt.Publish(fmt.Sprintf("%s/climate/%s/config", b.HassPrefix, b.DeviceName), 0, true, string(configJSON))
}

func (b *Bridge) publish(topic string, payload string) {
	err := b.Mqtt.Publish(topic, 0, true, payload)
	if err != nil {
		log.Printf("[%s] Error publishing to %s: %s\n", b.DeviceName, topic, err)
	}
}

func (b *Bridge) getStateTopic(subtopic string) string {
	return fmt.Sprintf("%s/%s/%s", b.TopicPrefix, b.DeviceName, subtopic)
}

func (b *Bridge) getBroadcastTopic() string {
	return fmt.Sprintf("%s/%s/broadcast/device/%s", b.Location, b.ProtocolPrefix, b.macText)
}

func (b *Bridge) getResponseTopic() string {
	return fmt.Sprintf("%s/%s/response/app/+/device/%s", b.Location, b.ProtocolPrefix, b.macText)
}

func (b *Bridge) getQueryTopic() string {
	return fmt.Sprintf("%s/%s/query/device/%s/app/%s", b.Location, b.ProtocolPrefix, b.macText, b.AppName)
}
