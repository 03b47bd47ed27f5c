// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"audiostream/internal/audio"
)

// RenderDevices formats the device list, highlighting the default input and
// output devices. Pass -1 when there is no default.
func RenderDevices(devices []audio.Device, defaultInput, defaultOutput int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Audio Device List"))
	sb.WriteString("\n\n")
	if len(devices) == 0 {
		sb.WriteString("No audio devices found.\n")
		return sb.String()
	}

	for _, device := range devices {
		deviceType := ""
		if device.MaxInputChannels > 0 && device.MaxOutputChannels > 0 {
			deviceType = "Input/Output"
		} else if device.MaxInputChannels > 0 {
			deviceType = "Input"
		} else if device.MaxOutputChannels > 0 {
			deviceType = "Output"
		}

		var marks []string
		if device.ID == defaultInput {
			marks = append(marks, "default input")
		}
		if device.ID == defaultOutput {
			marks = append(marks, "default output")
		}

		header := fmt.Sprintf("[%d] %s (%s)", device.ID, device.Name, deviceType)
		if len(marks) > 0 {
			header = highlightStyle.Render(header + " *" + strings.Join(marks, ", ") + "*")
		}
		sb.WriteString(header)
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "    Host API: %s\n", device.HostAPI)
		fmt.Fprintf(&sb, "    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Fprintf(&sb, "    Default sample rate: %.0f Hz\n\n", device.DefaultSampleRate)
	}
	return sb.String()
}
