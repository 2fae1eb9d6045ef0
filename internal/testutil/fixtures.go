package testutil

// SampleCapture is a capture of one device with four trend logs:
//
//	trendLog:1  analog zone temperature, three records (two reals, one logStatus)
//	trendLog:2  binary fan status, two boolean records
//	trendLog:3  a buffer with a record carrying two datum variants
//	trendLog:4  a device that failed to answer the metadata request
const SampleCapture = `device: device:100
captured_at: 2024-03-15T15:10:00Z
trend_logs:
  - object: trendLog:1
    properties:
      object_name: TL-ZoneTemp
      description: Zone 3 temperature
      record_count: 3
      buffer_size: 1000
      total_record_count: 15320
      log_device_object_property:
        object: {type: analogInput, instance: 3}
        property: presentValue
      status_flags: {in_alarm: false, fault: false, overridden: false, out_of_service: false}
    records:
      - timestamp:
          date: {year: 124, month: 3, day: 15, day_of_week: 5}
          time: {hour: 14, minute: 30, second: 5, fraction: 50}
        datum: {real: 21.5}
      - timestamp:
          date: {year: 124, month: 3, day: 15, day_of_week: 255}
          time: {hour: 14, minute: 45, second: 5, fraction: 0}
        datum: {real: 21.75}
        status_flags: {in_alarm: true}
      - timestamp:
          date: {year: 124, month: 3, day: 15, day_of_week: 5}
          time: {hour: 15, minute: 0, second: 5, fraction: 0}
        datum:
          log_status: {buffer_purged: true}
  - object: trendLog:2
    properties:
      object_name: TL-FanStatus
      description: AHU-1 supply fan
      record_count: 2
      buffer_size: 500
      total_record_count: 2
      log_device_object_property:
        device: {type: device, instance: 100}
        object: {type: binaryInput, instance: 1}
        property: presentValue
      status_flags: {in_alarm: false, fault: true, overridden: false, out_of_service: false}
    records:
      - timestamp:
          date: {year: 124, month: 3, day: 15, day_of_week: 255}
          time: {hour: 8, minute: 0, second: 0, fraction: 0}
        datum: {boolean: true}
      - timestamp:
          date: {year: 124, month: 3, day: 15, day_of_week: 255}
          time: {hour: 18, minute: 0, second: 0, fraction: 0}
        datum: {boolean: false}
  - object: trendLog:3
    properties:
      object_name: TL-Broken
      description: corrupted buffer
      record_count: 1
      buffer_size: 10
      total_record_count: 1
      log_device_object_property:
        object: {type: analogValue, instance: 9}
        property: presentValue
      status_flags: {in_alarm: false, fault: false, overridden: false, out_of_service: false}
    records:
      - timestamp:
          date: {year: 124, month: 3, day: 15, day_of_week: 5}
          time: {hour: 9, minute: 0, second: 0, fraction: 0}
        datum: {real: 1.0, boolean: true}
  - object: trendLog:4
    metadata_error: no response from device
`
